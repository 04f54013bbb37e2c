package models

import "time"

type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusResolved SessionStatus = "resolved"
	SessionStatusExpired  SessionStatus = "expired"
)

type RandomnessRequest struct {
	IsMock        bool    `json:"is_mock"`
	RequestID     string  `json:"request_id"`
	OracleRequest *string `json:"oracle_request,omitempty"`
}

type GameResult struct {
	Outcome       uint8  `json:"outcome"`
	IsWin         bool   `json:"is_win"`
	Payout        uint64 `json:"payout"`
	PayoutClaimed bool   `json:"payout_claimed"` // always true for losses
}

// GameSession is one wager from placement to settlement.
// Result is set if and only if Status is resolved.
type GameSession struct {
	Player    string   `json:"player"`
	GameID    uint64   `json:"game_id"`
	GameType  GameType `json:"game_type"`
	BetAmount uint64   `json:"bet_amount"`
	Choice    uint8    `json:"choice"`

	Status            SessionStatus     `json:"status"` // pending, resolved, expired
	RandomnessRequest RandomnessRequest `json:"randomness_request"`
	Result            *GameResult       `json:"result,omitempty"`
	StorageDeposit    uint64            `json:"storage_deposit"`

	CreatedAt  int64  `json:"created_at"`
	ResolvedAt *int64 `json:"resolved_at,omitempty"`
}

func (s *GameSession) IsExpired(now time.Time, window time.Duration) bool {
	return now.Unix()-s.CreatedAt > int64(window/time.Second)
}

func (s *GameSession) HasUnclaimedPayout() bool {
	return s.Result != nil && s.Result.IsWin && s.Result.Payout > 0 && !s.Result.PayoutClaimed
}

func (s *GameSession) Clone() *GameSession {
	cp := *s
	if s.Result != nil {
		r := *s.Result
		cp.Result = &r
	}
	if s.ResolvedAt != nil {
		at := *s.ResolvedAt
		cp.ResolvedAt = &at
	}
	if s.RandomnessRequest.OracleRequest != nil {
		ref := *s.RandomnessRequest.OracleRequest
		cp.RandomnessRequest.OracleRequest = &ref
	}
	return &cp
}
