package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"casino-vault-backend/internal/config"
	"casino-vault-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisService is the durable ledger. Atomic units use optimistic
// WATCH/MULTI: each key is watched before it is first read and the staged
// writes are committed in one MULTI. A unit that loses a race is re-run.
type RedisService struct {
	client     *redis.Client
	keys       keyspace
	maxRetries int
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceWithClient(client, cfg.ProgramID), nil
}

func NewRedisServiceWithClient(client *redis.Client, programID string) *RedisService {
	return &RedisService{
		client:     client,
		keys:       keyspace(programID),
		maxRetries: DefaultMaxTxRetries,
	}
}

func (s *RedisService) Client() *redis.Client {
	return s.client
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Atomic(ctx context.Context, fn func(tx LedgerTx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			rtx := newRedisTx(ctx, tx, s.keys)
			if err := fn(rtx); err != nil {
				return err
			}
			return rtx.commit()
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrLedgerContention
}

func (s *RedisService) GetConfig(ctx context.Context) (*models.CasinoConfig, error) {
	return readConfig(ctx, s.client, s.keys)
}

func (s *RedisService) GetSession(ctx context.Context, player string, gameID uint64) (*models.GameSession, error) {
	return readSession(ctx, s.client, s.keys.session(player, gameID))
}

func (s *RedisService) PlayerSessions(ctx context.Context, player string) ([]*models.GameSession, error) {
	return s.sessionsIn(ctx, s.keys.playerSessions(player))
}

func (s *RedisService) PendingSessions(ctx context.Context) ([]*models.GameSession, error) {
	return s.sessionsIn(ctx, s.keys.pendingSessions())
}

func (s *RedisService) GetBalance(ctx context.Context, account string) (uint64, error) {
	return readBalance(ctx, s.client, s.keys.balance(account))
}

// Credit records an external deposit into a player account. Pool accounts
// only move through engine operations, so their totals stay reconcilable.
func (s *RedisService) Credit(ctx context.Context, account string, amount uint64) error {
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	if models.IsPoolAccount(account) {
		return fmt.Errorf("cannot credit pool account %s", account)
	}
	return s.Atomic(ctx, func(tx LedgerTx) error {
		bal, err := tx.Balance(account)
		if err != nil {
			return err
		}
		next, err := models.CheckedAdd(bal, amount)
		if err != nil {
			return err
		}
		return tx.SetBalance(account, next)
	})
}

// sessionsIn loads every session whose key is a member of setKey. Members
// whose session has since been deleted are skipped.
func (s *RedisService) sessionsIn(ctx context.Context, setKey string) ([]*models.GameSession, error) {
	keys, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*models.GameSession, 0, len(keys))
	if len(keys) == 0 {
		return sessions, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var session models.GameSession
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game session: %w", err)
		}
		sessions = append(sessions, &session)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].GameID < sessions[j].GameID })
	return sessions, nil
}

// CheckRateLimit counts one action in a fixed window and reports whether the
// caller is still under limit.
func (s *RedisService) CheckRateLimit(ctx context.Context, identity, action string, limit int, window time.Duration) (bool, error) {
	key := s.keys.rateLimit(identity, action)

	// the window's TTL is set in the same transaction that opens it
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisTx struct {
	ctx     context.Context
	tx      *redis.Tx
	keys    keyspace
	watched map[string]bool

	config   *models.CasinoConfig
	sessions map[string]*models.GameSession // nil value marks a delete
	refs     map[string]sessionRef
	balances map[string]uint64
}

func newRedisTx(ctx context.Context, tx *redis.Tx, keys keyspace) *redisTx {
	return &redisTx{
		ctx:      ctx,
		tx:       tx,
		keys:     keys,
		watched:  make(map[string]bool),
		sessions: make(map[string]*models.GameSession),
		refs:     make(map[string]sessionRef),
		balances: make(map[string]uint64),
	}
}

func (t *redisTx) watch(key string) error {
	if t.watched[key] {
		return nil
	}
	if err := t.tx.Watch(t.ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", key, err)
	}
	t.watched[key] = true
	return nil
}

func (t *redisTx) Config() (*models.CasinoConfig, error) {
	if t.config != nil {
		return t.config.Clone(), nil
	}
	if err := t.watch(t.keys.config()); err != nil {
		return nil, err
	}
	return readConfig(t.ctx, t.tx, t.keys)
}

func (t *redisTx) PutConfig(cfg *models.CasinoConfig) error {
	if err := t.watch(t.keys.config()); err != nil {
		return err
	}
	t.config = cfg.Clone()
	return nil
}

func (t *redisTx) Session(player string, gameID uint64) (*models.GameSession, error) {
	key := t.keys.session(player, gameID)
	if s, staged := t.sessions[key]; staged {
		if s == nil {
			return nil, models.ErrSessionNotFound
		}
		return s.Clone(), nil
	}
	if err := t.watch(key); err != nil {
		return nil, err
	}
	return readSession(t.ctx, t.tx, key)
}

func (t *redisTx) PutSession(session *models.GameSession) error {
	key := t.keys.session(session.Player, session.GameID)
	if err := t.watch(key); err != nil {
		return err
	}
	t.sessions[key] = session.Clone()
	t.refs[key] = sessionRef{session.Player, session.GameID}
	return nil
}

func (t *redisTx) DeleteSession(player string, gameID uint64) error {
	key := t.keys.session(player, gameID)
	if err := t.watch(key); err != nil {
		return err
	}
	t.sessions[key] = nil
	t.refs[key] = sessionRef{player, gameID}
	return nil
}

func (t *redisTx) Balance(account string) (uint64, error) {
	if b, staged := t.balances[account]; staged {
		return b, nil
	}
	key := t.keys.balance(account)
	if err := t.watch(key); err != nil {
		return 0, err
	}
	return readBalance(t.ctx, t.tx, key)
}

func (t *redisTx) SetBalance(account string, amount uint64) error {
	if err := t.watch(t.keys.balance(account)); err != nil {
		return err
	}
	t.balances[account] = amount
	return nil
}

func (t *redisTx) commit() error {
	if t.config == nil && len(t.sessions) == 0 && len(t.balances) == 0 {
		return nil
	}

	_, err := t.tx.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		if t.config != nil {
			data, err := json.Marshal(t.config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			pipe.Set(t.ctx, t.keys.config(), data, 0)
		}

		for key, session := range t.sessions {
			ref := t.refs[key]
			playerSet := t.keys.playerSessions(ref.player)
			if session == nil {
				pipe.Del(t.ctx, key)
				pipe.SRem(t.ctx, playerSet, key)
				pipe.SRem(t.ctx, t.keys.pendingSessions(), key)
				continue
			}

			data, err := json.Marshal(session)
			if err != nil {
				return fmt.Errorf("failed to marshal game session: %w", err)
			}
			pipe.Set(t.ctx, key, data, 0)
			pipe.SAdd(t.ctx, playerSet, key)
			if session.Status == models.SessionStatusPending {
				pipe.SAdd(t.ctx, t.keys.pendingSessions(), key)
			} else {
				pipe.SRem(t.ctx, t.keys.pendingSessions(), key)
			}
		}

		for account, amount := range t.balances {
			pipe.Set(t.ctx, t.keys.balance(account), amount, 0)
		}
		return nil
	})
	return err
}

func readConfig(ctx context.Context, c getter, keys keyspace) (*models.CasinoConfig, error) {
	data, err := c.Get(ctx, keys.config()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get casino config: %w", err)
	}

	var cfg models.CasinoConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal casino config: %w", err)
	}
	return &cfg, nil
}

func readSession(ctx context.Context, c getter, key string) (*models.GameSession, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}

	var session models.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game session: %w", err)
	}
	return &session, nil
}

func readBalance(ctx context.Context, c getter, key string) (uint64, error) {
	bal, err := c.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return bal, nil
}
