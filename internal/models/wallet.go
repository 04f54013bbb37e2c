package models

import "strings"

const (
	playerAccountPrefix = "player:"

	VaultAccount    = "pool:vault"
	TreasuryAccount = "pool:treasury"
)

// PlayerAccount names the balance account of a player identity. The prefix
// keeps player identities from colliding with the pool accounts.
func PlayerAccount(identity string) string {
	return playerAccountPrefix + identity
}

func IsPoolAccount(account string) bool {
	return strings.HasPrefix(account, "pool:")
}

type BalanceResponse struct {
	Identity  string `json:"identity"`
	Balance   uint64 `json:"balance"`
	Formatted string `json:"formatted"`
}

type CasinoResponse struct {
	Config          *CasinoConfig `json:"config"`
	VaultBalance    uint64        `json:"vault_balance"`
	TreasuryBalance uint64        `json:"treasury_balance"`
	VaultFormatted  string        `json:"vault_formatted"`
	Solvent         bool          `json:"solvent"`
}
