package models

import "errors"

// ErrorCode is a machine-readable casino error code.
type ErrorCode string

const (
	CodeUnknown                    ErrorCode = "UNKNOWN"
	CodeConfigInvalid              ErrorCode = "CONFIG_INVALID"
	CodeNotInitialized             ErrorCode = "NOT_INITIALIZED"
	CodeAlreadyInitialized         ErrorCode = "ALREADY_INITIALIZED"
	CodeCasinoPaused               ErrorCode = "CASINO_PAUSED"
	CodeInvalidBetAmount           ErrorCode = "INVALID_BET_AMOUNT"
	CodeInvalidAmount              ErrorCode = "INVALID_AMOUNT"
	CodeInvalidChoice              ErrorCode = "INVALID_CHOICE"
	CodeInvalidGameType            ErrorCode = "INVALID_GAME_TYPE"
	CodeInsufficientPlayerFunds    ErrorCode = "INSUFFICIENT_PLAYER_FUNDS"
	CodeInsufficientVaultLiquidity ErrorCode = "INSUFFICIENT_VAULT_LIQUIDITY"
	CodeUnauthorized               ErrorCode = "UNAUTHORIZED"
	CodeInvalidRandomnessCallback  ErrorCode = "INVALID_RANDOMNESS_CALLBACK"
	CodeMockVRFNotAllowed          ErrorCode = "MOCK_VRF_NOT_ALLOWED"
	CodeInvalidRandomValue         ErrorCode = "INVALID_RANDOM_VALUE"
	CodeSessionNotFound            ErrorCode = "SESSION_NOT_FOUND"
	CodeAlreadyResolved            ErrorCode = "ALREADY_RESOLVED"
	CodeSessionExpired             ErrorCode = "SESSION_EXPIRED"
	CodeSessionNotExpiredYet       ErrorCode = "SESSION_NOT_EXPIRED_YET"
	CodeNotResolved                ErrorCode = "NOT_RESOLVED"
	CodeNothingToClaim             ErrorCode = "NOTHING_TO_CLAIM"
	CodeInvalidSkimAmount          ErrorCode = "INVALID_SKIM_AMOUNT"
	CodeOverflow                   ErrorCode = "OVERFLOW"
)

// CasinoError is a rejected precondition. It always aborts the whole operation.
type CasinoError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CasinoError) Error() string {
	return e.Message
}

var (
	ErrConfigInvalid              = &CasinoError{CodeConfigInvalid, "invalid casino config: need min_bet > 0, max_bet >= min_bet and max_bet <= initial_funding/2"}
	ErrNotInitialized             = &CasinoError{CodeNotInitialized, "casino is not initialized"}
	ErrAlreadyInitialized         = &CasinoError{CodeAlreadyInitialized, "casino is already initialized"}
	ErrCasinoPaused               = &CasinoError{CodeCasinoPaused, "casino is currently paused"}
	ErrInvalidBetAmount           = &CasinoError{CodeInvalidBetAmount, "invalid bet amount - must be between min and max bet"}
	ErrInvalidAmount              = &CasinoError{CodeInvalidAmount, "amount must be greater than zero"}
	ErrInvalidChoice              = &CasinoError{CodeInvalidChoice, "invalid choice for game type"}
	ErrInvalidGameType            = &CasinoError{CodeInvalidGameType, "invalid game type"}
	ErrInsufficientPlayerFunds    = &CasinoError{CodeInsufficientPlayerFunds, "player has insufficient funds for this bet"}
	ErrInsufficientVaultLiquidity = &CasinoError{CodeInsufficientVaultLiquidity, "vault has insufficient liquidity"}
	ErrUnauthorized               = &CasinoError{CodeUnauthorized, "caller is not allowed to perform this action"}
	ErrInvalidRandomnessCallback  = &CasinoError{CodeInvalidRandomnessCallback, "invalid randomness callback - session was not requested from the mock source"}
	ErrMockVRFNotAllowed          = &CasinoError{CodeMockVRFNotAllowed, "mock randomness is not allowed in oracle mode"}
	ErrInvalidRandomValue         = &CasinoError{CodeInvalidRandomValue, "random value must be 32 bytes"}
	ErrSessionNotFound            = &CasinoError{CodeSessionNotFound, "game session not found"}
	ErrAlreadyResolved            = &CasinoError{CodeAlreadyResolved, "game session already resolved"}
	ErrSessionExpired             = &CasinoError{CodeSessionExpired, "game session expired"}
	ErrSessionNotExpiredYet       = &CasinoError{CodeSessionNotExpiredYet, "session is not expired yet - cannot refund"}
	ErrNotResolved                = &CasinoError{CodeNotResolved, "session is not resolved yet"}
	ErrNothingToClaim             = &CasinoError{CodeNothingToClaim, "nothing to claim - no payout or already claimed"}
	ErrInvalidSkimAmount          = &CasinoError{CodeInvalidSkimAmount, "invalid skim amount - must be greater than zero"}
	ErrOverflow                   = &CasinoError{CodeOverflow, "numeric overflow"}
)

// CodeOf returns the casino error code carried by err, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var ce *CasinoError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeUnknown
}
