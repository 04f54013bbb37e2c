package models

import "time"

const (
	BasisPoints        uint64 = 10000
	PayoutMultiplierBP uint64 = 19600 // 1.96x, also the worst case used for liquidity checks
	DiceMultiplierBP   uint64 = 50000
	SlotsMultiplierBP  uint64 = 100000

	DefaultSessionExpiry = 3600 * time.Second

	DefaultPlayerBuffer   uint64 = 10_000_000 // covers the storage deposit and fees
	DefaultSessionDeposit uint64 = 2_000_000
)

type RandomnessMode string

const (
	RandomnessModeMock   RandomnessMode = "mock"
	RandomnessModeOracle RandomnessMode = "oracle"
)

func (m RandomnessMode) Valid() bool {
	return m == RandomnessModeMock || m == RandomnessModeOracle
}

// CasinoConfig is the singleton registry record. It is created once by
// Initialize and mutated by every bet, payout and skim.
type CasinoConfig struct {
	Authority       string `json:"authority"`
	ProgramID       string `json:"program_id"`
	VaultAccount    string `json:"vault_account"`
	TreasuryAccount string `json:"treasury_account"`

	MinBet uint64 `json:"min_bet"`
	MaxBet uint64 `json:"max_bet"`

	TotalGames           uint64 `json:"total_games"`
	TotalVolume          uint64 `json:"total_volume"`
	TotalPayouts         uint64 `json:"total_payouts"`
	TotalTreasurySkimmed uint64 `json:"total_treasury_skimmed"`
	TotalFunded          uint64 `json:"total_funded"`

	IsActive       bool           `json:"is_active"`
	RandomnessMode RandomnessMode `json:"randomness_mode"`
	OracleFeed     *string        `json:"oracle_feed,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

type InitializeParams struct {
	MinBet         uint64
	MaxBet         uint64
	InitialFunding uint64
	RandomnessMode RandomnessMode
	OracleFeed     string
}

// Validate enforces the bet bounds. max_bet is capped at half the seed
// liquidity so one maximum payout cannot drain the pool.
func (p InitializeParams) Validate() error {
	if p.MinBet == 0 || p.MaxBet < p.MinBet || p.MaxBet > p.InitialFunding/2 {
		return ErrConfigInvalid
	}
	if !p.RandomnessMode.Valid() {
		return ErrConfigInvalid
	}
	return nil
}

func (c *CasinoConfig) IsOperational() bool {
	return c.IsActive
}

func (c *CasinoConfig) ValidateBetAmount(amount uint64) error {
	if amount < c.MinBet || amount > c.MaxBet {
		return ErrInvalidBetAmount
	}
	return nil
}

// IsSolvent reports whether lifetime payouts stay within what was ever put in.
func (c *CasinoConfig) IsSolvent() bool {
	in, err := CheckedAdd(c.TotalVolume, c.TotalFunded)
	if err != nil {
		return true
	}
	return c.TotalPayouts <= in
}

func (c *CasinoConfig) Clone() *CasinoConfig {
	cp := *c
	if c.OracleFeed != nil {
		feed := *c.OracleFeed
		cp.OracleFeed = &feed
	}
	return &cp
}
