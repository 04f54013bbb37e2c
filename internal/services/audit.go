package services

import (
	"context"
	"fmt"
	"time"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SettlementRecord is one row of the settlement audit trail.
type SettlementRecord struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EventType     string    `json:"event_type" gorm:"index;type:varchar(32);not null"`
	Player        string    `json:"player,omitempty" gorm:"index;type:varchar(128)"`
	GameID        *uint64   `json:"game_id,omitempty" gorm:"index"`
	GameType      string    `json:"game_type,omitempty" gorm:"type:varchar(16)"`
	BetAmount     uint64    `json:"bet_amount"`
	Choice        uint8     `json:"choice"`
	Status        string    `json:"status,omitempty" gorm:"type:varchar(16)"`
	Outcome       *uint8    `json:"outcome,omitempty"`
	IsWin         bool      `json:"is_win"`
	Payout        uint64    `json:"payout"`
	PayoutClaimed bool      `json:"payout_claimed"`
	Amount        uint64    `json:"amount"`
	RequestID     string    `json:"request_id,omitempty" gorm:"type:varchar(64)"`
	VaultAfter    *uint64   `json:"vault_after,omitempty"`
	TreasuryAfter *uint64   `json:"treasury_after,omitempty"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}

// AuditStore appends every committed casino event to a SQL table so the
// settlement history survives session deletion.
type AuditStore struct {
	db *gorm.DB
}

// OpenAuditDB opens the audit database for driver "sqlite" or "postgres".
func OpenAuditDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.NewGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	return db, nil
}

func NewAuditStore(db *gorm.DB) (*AuditStore, error) {
	if err := db.AutoMigrate(&SettlementRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit store: %w", err)
	}
	return &AuditStore{db: db}, nil
}

func (a *AuditStore) BroadcastEvent(ctx context.Context, event *models.CasinoEvent) {
	if err := a.Record(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).Str("event", string(event.Type)).Msg("failed to write audit record")
	}
}

func (a *AuditStore) Record(ctx context.Context, event *models.CasinoEvent) error {
	rec := &SettlementRecord{
		ID:        uuid.NewString(),
		EventType: string(event.Type),
		Player:    event.Player,
		Amount:    event.Amount,
		CreatedAt: time.Unix(event.CreatedAt, 0).UTC(),
	}

	if s := event.Session; s != nil {
		gameID := s.GameID
		rec.GameID = &gameID
		rec.GameType = string(s.GameType)
		rec.BetAmount = s.BetAmount
		rec.Choice = s.Choice
		rec.Status = string(s.Status)
		rec.RequestID = s.RandomnessRequest.RequestID
		if s.Result != nil {
			outcome := s.Result.Outcome
			rec.Outcome = &outcome
			rec.IsWin = s.Result.IsWin
			rec.Payout = s.Result.Payout
			rec.PayoutClaimed = s.Result.PayoutClaimed
		}
	}
	if k := event.Skim; k != nil {
		vault, treasury := k.VaultBalanceAfter, k.TreasuryBalanceAfter
		rec.VaultAfter = &vault
		rec.TreasuryAfter = &treasury
	}

	if err := a.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create settlement record: %w", err)
	}
	return nil
}

// History lists a player's records, newest first.
func (a *AuditStore) History(ctx context.Context, player string, limit int) ([]*SettlementRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var records []*SettlementRecord
	err := a.db.WithContext(ctx).
		Where("player = ?", player).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query settlement history: %w", err)
	}
	return records, nil
}
