package services

import (
	"context"
	"sort"
	"sync"

	"casino-vault-backend/internal/models"
)

// MemoryLedger keeps the whole ledger in process. Atomic units are
// serialised by a single mutex.
type MemoryLedger struct {
	mu       sync.Mutex
	config   *models.CasinoConfig
	sessions map[sessionRef]*models.GameSession
	balances map[string]uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		sessions: make(map[sessionRef]*models.GameSession),
		balances: make(map[string]uint64),
	}
}

func (l *MemoryLedger) Atomic(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &memoryTx{
		ledger:   l,
		sessions: make(map[sessionRef]*models.GameSession),
		balances: make(map[string]uint64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (l *MemoryLedger) GetConfig(ctx context.Context) (*models.CasinoConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.config == nil {
		return nil, models.ErrNotInitialized
	}
	return l.config.Clone(), nil
}

func (l *MemoryLedger) GetSession(ctx context.Context, player string, gameID uint64) (*models.GameSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[sessionRef{player, gameID}]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (l *MemoryLedger) PlayerSessions(ctx context.Context, player string) ([]*models.GameSession, error) {
	return l.collect(func(s *models.GameSession) bool { return s.Player == player }), nil
}

func (l *MemoryLedger) PendingSessions(ctx context.Context) ([]*models.GameSession, error) {
	return l.collect(func(s *models.GameSession) bool { return s.Status == models.SessionStatusPending }), nil
}

func (l *MemoryLedger) GetBalance(ctx context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Credit adds to an account outside of any engine operation. It is meant for
// seeding test and development balances.
func (l *MemoryLedger) Credit(account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, err := models.CheckedAdd(l.balances[account], amount)
	if err != nil {
		return err
	}
	l.balances[account] = next
	return nil
}

func (l *MemoryLedger) collect(match func(*models.GameSession) bool) []*models.GameSession {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.GameSession, 0)
	for _, s := range l.sessions {
		if match(s) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out
}

type memoryTx struct {
	ledger   *MemoryLedger
	config   *models.CasinoConfig
	sessions map[sessionRef]*models.GameSession // nil value marks a delete
	balances map[string]uint64
}

func (t *memoryTx) Config() (*models.CasinoConfig, error) {
	if t.config != nil {
		return t.config.Clone(), nil
	}
	if t.ledger.config == nil {
		return nil, models.ErrNotInitialized
	}
	return t.ledger.config.Clone(), nil
}

func (t *memoryTx) PutConfig(cfg *models.CasinoConfig) error {
	t.config = cfg.Clone()
	return nil
}

func (t *memoryTx) Session(player string, gameID uint64) (*models.GameSession, error) {
	ref := sessionRef{player, gameID}
	if s, staged := t.sessions[ref]; staged {
		if s == nil {
			return nil, models.ErrSessionNotFound
		}
		return s.Clone(), nil
	}
	s, ok := t.ledger.sessions[ref]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (t *memoryTx) PutSession(session *models.GameSession) error {
	t.sessions[sessionRef{session.Player, session.GameID}] = session.Clone()
	return nil
}

func (t *memoryTx) DeleteSession(player string, gameID uint64) error {
	t.sessions[sessionRef{player, gameID}] = nil
	return nil
}

func (t *memoryTx) Balance(account string) (uint64, error) {
	if b, staged := t.balances[account]; staged {
		return b, nil
	}
	return t.ledger.balances[account], nil
}

func (t *memoryTx) SetBalance(account string, amount uint64) error {
	t.balances[account] = amount
	return nil
}

func (t *memoryTx) commit() {
	l := t.ledger
	if t.config != nil {
		l.config = t.config
	}
	for ref, s := range t.sessions {
		if s == nil {
			delete(l.sessions, ref)
			continue
		}
		l.sessions[ref] = s
	}
	for account, b := range t.balances {
		l.balances[account] = b
	}
}
