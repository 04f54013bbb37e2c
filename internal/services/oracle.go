package services

import (
	"context"
	"errors"
	"time"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"
)

// OracleKeeper polls pending sessions. It refunds the ones that expired and,
// when auto fulfil is on in mock mode, resolves the rest as the authority
// with provably fair random values.
type OracleKeeper struct {
	engine      *CasinoEngine
	source      *FairnessSource
	interval    time.Duration
	autoFulfill bool
}

type SweepResult struct {
	Refunded  int `json:"refunded"`
	Fulfilled int `json:"fulfilled"`
	Failed    int `json:"failed"`
}

func NewOracleKeeper(engine *CasinoEngine, source *FairnessSource, interval time.Duration, autoFulfill bool) *OracleKeeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OracleKeeper{
		engine:      engine,
		source:      source,
		interval:    interval,
		autoFulfill: autoFulfill && source != nil,
	}
}

func (k *OracleKeeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	cfg, err := k.engine.GetConfig(ctx)
	if errors.Is(err, models.ErrNotInitialized) {
		return res, nil
	}
	if err != nil {
		return res, err
	}

	pending, err := k.engine.PendingSessions(ctx)
	if err != nil {
		return res, err
	}

	now := k.engine.now()
	for _, s := range pending {
		switch {
		case s.IsExpired(now, k.engine.SessionExpiry()):
			_, err = k.engine.RefundExpired(ctx, cfg.Authority, s.Player, s.GameID)
			if err == nil {
				res.Refunded++
			}
		case k.autoFulfill && cfg.RandomnessMode == models.RandomnessModeMock && s.RandomnessRequest.IsMock:
			_, err = k.engine.FulfillRandomness(ctx, cfg.Authority, s.Player, s.GameID, k.source.Draw(s.GameID))
			if err == nil {
				res.Fulfilled++
			}
		default:
			continue
		}

		// A player may have settled the session between listing and now.
		if err != nil && !errors.Is(err, models.ErrAlreadyResolved) && !errors.Is(err, models.ErrSessionNotFound) {
			res.Failed++
			logger.Warn(ctx).Err(err).Str("player", s.Player).Uint64("game_id", s.GameID).Msg("keeper could not settle session")
		}
	}
	return res, nil
}

// Run sweeps every interval until ctx is cancelled.
func (k *OracleKeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := k.Sweep(ctx)
			if err != nil {
				logger.Error(ctx).Err(err).Msg("keeper sweep failed")
				continue
			}
			if res.Refunded+res.Fulfilled+res.Failed > 0 {
				logger.Info(ctx).
					Int("refunded", res.Refunded).
					Int("fulfilled", res.Fulfilled).
					Int("failed", res.Failed).
					Msg("keeper sweep")
			}
		case <-ctx.Done():
			return
		}
	}
}
