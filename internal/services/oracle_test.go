package services_test

import (
	"context"
	"testing"
	"time"

	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOracleKeeperRefundsExpiredAndFulfilsMock(t *testing.T) {
	f := newFixture(t, models.RandomnessModeMock)
	source, err := services.NewFairnessSource("keeper-test")
	require.NoError(t, err)
	keeper := services.NewOracleKeeper(f.engine, source, time.Second, true)

	stale := f.bet(t, alice, models.GameTypeCoinFlip, 0, minBet)
	f.clock.Advance(models.DefaultSessionExpiry + time.Second)
	fresh := f.bet(t, bob, models.GameTypeSlots, 0, minBet)

	res, err := keeper.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, services.SweepResult{Refunded: 1, Fulfilled: 1}, res)

	_, err = f.engine.GetSession(f.ctx, alice, stale.GameID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.Equal(t, playerStake, f.balance(t, alice))

	resolved, err := f.engine.GetSession(f.ctx, bob, fresh.GameID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusResolved, resolved.Status)

	// the outcome is reproducible from the revealed seed
	expected, err := services.ResolveOutcome(models.GameTypeSlots, 0, source.Draw(fresh.GameID))
	require.NoError(t, err)
	assert.Equal(t, expected.Value, resolved.Result.Outcome)
	assert.Equal(t, expected.IsWin, resolved.Result.IsWin)

	pending, err := f.engine.PendingSessions(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOracleKeeperLeavesOracleSessionsAlone(t *testing.T) {
	f := newFixture(t, models.RandomnessModeOracle)
	source, err := services.NewFairnessSource("")
	require.NoError(t, err)
	keeper := services.NewOracleKeeper(f.engine, source, time.Second, true)

	f.bet(t, alice, models.GameTypeCoinFlip, 1, minBet)

	res, err := keeper.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, res)

	pending, err := f.engine.PendingSessions(f.ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestOracleKeeperWithoutAutoFulfil(t *testing.T) {
	f := newFixture(t, models.RandomnessModeMock)
	keeper := services.NewOracleKeeper(f.engine, nil, time.Second, true)

	f.bet(t, alice, models.GameTypeCoinFlip, 1, minBet)

	res, err := keeper.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestOracleKeeperBeforeInitialize(t *testing.T) {
	engine := services.NewCasinoEngine(services.NewMemoryLedger(), services.EngineOptions{})
	keeper := services.NewOracleKeeper(engine, nil, 0, false)

	res, err := keeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestOracleKeeperRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, models.RandomnessModeMock)
	source, err := services.NewFairnessSource("")
	require.NoError(t, err)
	keeper := services.NewOracleKeeper(f.engine, source, 10*time.Millisecond, true)

	s := f.bet(t, alice, models.GameTypeDice, 7, minBet)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		keeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := f.engine.GetSession(f.ctx, alice, s.GameID)
		return err == nil && got.Status == models.SessionStatusResolved
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keeper did not stop")
	}
}
