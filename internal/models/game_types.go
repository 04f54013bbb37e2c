package models

type GameType string

const (
	GameTypeCoinFlip GameType = "coinflip"
	GameTypeDice     GameType = "dice"
	GameTypeSlots    GameType = "slots"
)

func (g GameType) Valid() bool {
	switch g {
	case GameTypeCoinFlip, GameTypeDice, GameTypeSlots:
		return true
	}
	return false
}

// ValidateChoice checks choice against the game: coin side 0/1, an exact
// dice sum 2..12, anything for slots.
func (g GameType) ValidateChoice(choice uint8) error {
	switch g {
	case GameTypeCoinFlip:
		if choice > 1 {
			return ErrInvalidChoice
		}
	case GameTypeDice:
		if choice < 2 || choice > 12 {
			return ErrInvalidChoice
		}
	case GameTypeSlots:
	default:
		return ErrInvalidGameType
	}
	return nil
}

type BetRequest struct {
	GameType  GameType `json:"game_type" binding:"required,oneof=coinflip dice slots"`
	Choice    uint8    `json:"choice"`
	BetAmount uint64   `json:"bet_amount"`
}

type FulfillRequest struct {
	Player      string `json:"player" binding:"required"`
	GameID      uint64 `json:"game_id"`
	RandomValue string `json:"random_value" binding:"required,len=64,hexadecimal"`
}

type ClaimRequest struct {
	GameID uint64 `json:"game_id"`
}

type RefundRequest struct {
	Player string `json:"player" binding:"required"`
	GameID uint64 `json:"game_id"`
}

type InitializeRequest struct {
	MinBet         uint64 `json:"min_bet"`
	MaxBet         uint64 `json:"max_bet"`
	InitialFunding uint64 `json:"initial_funding"`
	RandomnessMode string `json:"randomness_mode" binding:"omitempty,oneof=mock oracle"`
	OracleFeed     string `json:"oracle_feed"`
}

type SkimRequest struct {
	Amount          uint64 `json:"amount"`
	MinVaultReserve uint64 `json:"min_vault_reserve"`
}

type FundRequest struct {
	Amount uint64 `json:"amount"`
}

type VerifyRequest struct {
	ServerSeed string   `json:"server_seed" binding:"required"`
	ClientSeed string   `json:"client_seed" binding:"required"`
	Nonce      uint64   `json:"nonce"`
	GameType   GameType `json:"game_type" binding:"required,oneof=coinflip dice slots"`
	Choice     uint8    `json:"choice"`
}
