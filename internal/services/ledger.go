package services

import (
	"context"
	"errors"

	"casino-vault-backend/internal/models"
)

// ErrLedgerContention is returned when an atomic unit kept losing the race
// for its keys and gave up.
var ErrLedgerContention = errors.New("ledger contention: too many concurrent writers, retry")

// LedgerTx is the view one atomic unit has of the ledger. Reads see the
// unit's own staged writes. Nothing is visible to others until commit.
//
// Config returns models.ErrNotInitialized and Session returns
// models.ErrSessionNotFound when the record does not exist. Missing
// balances read as zero.
type LedgerTx interface {
	Config() (*models.CasinoConfig, error)
	PutConfig(cfg *models.CasinoConfig) error
	Session(player string, gameID uint64) (*models.GameSession, error)
	PutSession(session *models.GameSession) error
	DeleteSession(player string, gameID uint64) error
	Balance(account string) (uint64, error)
	SetBalance(account string, amount uint64) error
}

// Ledger is the storage substrate. Atomic runs fn against a consistent
// snapshot and commits all of its writes or none: if fn returns an error
// nothing is written.
type Ledger interface {
	Atomic(ctx context.Context, fn func(tx LedgerTx) error) error

	GetConfig(ctx context.Context) (*models.CasinoConfig, error)
	GetSession(ctx context.Context, player string, gameID uint64) (*models.GameSession, error)
	PlayerSessions(ctx context.Context, player string) ([]*models.GameSession, error)
	PendingSessions(ctx context.Context) ([]*models.GameSession, error)
	GetBalance(ctx context.Context, account string) (uint64, error)
}

type sessionRef struct {
	player string
	gameID uint64
}
