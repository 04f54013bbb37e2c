package models

type EventType string

const (
	EventBetPlaced       EventType = "bet_placed"
	EventSessionResolved EventType = "session_resolved"
	EventPayoutClaimed   EventType = "payout_claimed"
	EventSessionRefunded EventType = "session_refunded"
	EventTreasurySkimmed EventType = "treasury_skimmed"
	EventVaultFunded     EventType = "vault_funded"
	EventCasinoPaused    EventType = "casino_paused"
	EventCasinoResumed   EventType = "casino_resumed"
)

// SkimRecord is the auditable record of one vault to treasury move.
type SkimRecord struct {
	Amount               uint64 `json:"amount"`
	VaultBalanceAfter    uint64 `json:"vault_balance_after"`
	TreasuryBalanceAfter uint64 `json:"treasury_balance_after"`
	MinVaultReserve      uint64 `json:"min_vault_reserve"`
}

// CasinoEvent describes a committed state change. Player is empty for
// casino-wide events.
type CasinoEvent struct {
	Type      EventType    `json:"type"`
	Player    string       `json:"player,omitempty"`
	Amount    uint64       `json:"amount"`
	Session   *GameSession `json:"session,omitempty"`
	Skim      *SkimRecord  `json:"skim,omitempty"`
	CreatedAt int64        `json:"created_at"`
}
