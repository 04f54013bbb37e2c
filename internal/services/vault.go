package services

import "casino-vault-backend/internal/models"

// vaultMover is the only code allowed to move funds. It is built by engine
// operations around their own LedgerTx and never handed to callers.
type vaultMover struct {
	tx  LedgerTx
	cfg *models.CasinoConfig
}

func newVaultMover(tx LedgerTx, cfg *models.CasinoConfig) vaultMover {
	return vaultMover{tx: tx, cfg: cfg}
}

// move debits from and credits to. short is returned when from cannot cover
// amount. It returns the balances after the move.
func (m vaultMover) move(from, to string, amount uint64, short error) (fromAfter, toAfter uint64, err error) {
	fromBal, err := m.tx.Balance(from)
	if err != nil {
		return 0, 0, err
	}
	if fromBal < amount {
		return 0, 0, short
	}
	toBal, err := m.tx.Balance(to)
	if err != nil {
		return 0, 0, err
	}
	if toAfter, err = models.CheckedAdd(toBal, amount); err != nil {
		return 0, 0, err
	}
	fromAfter = fromBal - amount

	if err := m.tx.SetBalance(from, fromAfter); err != nil {
		return 0, 0, err
	}
	if err := m.tx.SetBalance(to, toAfter); err != nil {
		return 0, 0, err
	}
	return fromAfter, toAfter, nil
}

// escrow moves a player's funds into the vault.
func (m vaultMover) escrow(player string, amount uint64) (uint64, error) {
	_, vault, err := m.move(models.PlayerAccount(player), m.cfg.VaultAccount, amount, models.ErrInsufficientPlayerFunds)
	return vault, err
}

// release pays a player out of the vault.
func (m vaultMover) release(player string, amount uint64) (uint64, error) {
	vault, _, err := m.move(m.cfg.VaultAccount, models.PlayerAccount(player), amount, models.ErrInsufficientVaultLiquidity)
	return vault, err
}

func (m vaultMover) skim(amount uint64) (vaultAfter, treasuryAfter uint64, err error) {
	return m.move(m.cfg.VaultAccount, m.cfg.TreasuryAccount, amount, models.ErrInsufficientVaultLiquidity)
}

// debit takes amount from a player without crediting another account. Used
// for the storage deposit held on a session.
func (m vaultMover) debit(player string, amount uint64) error {
	account := models.PlayerAccount(player)
	bal, err := m.tx.Balance(account)
	if err != nil {
		return err
	}
	if bal < amount {
		return models.ErrInsufficientPlayerFunds
	}
	return m.tx.SetBalance(account, bal-amount)
}

// credit returns a held deposit to a player.
func (m vaultMover) credit(player string, amount uint64) error {
	account := models.PlayerAccount(player)
	bal, err := m.tx.Balance(account)
	if err != nil {
		return err
	}
	next, err := models.CheckedAdd(bal, amount)
	if err != nil {
		return err
	}
	return m.tx.SetBalance(account, next)
}
