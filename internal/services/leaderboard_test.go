package services_test

import (
	"context"
	"math"
	"testing"

	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedSession(player string, gameID, bet, payout uint64, win bool) *models.GameSession {
	at := int64(1_700_000_000 + gameID)
	return &models.GameSession{
		Player:     player,
		GameID:     gameID,
		GameType:   models.GameTypeCoinFlip,
		BetAmount:  bet,
		Status:     models.SessionStatusResolved,
		Result:     &models.GameResult{IsWin: win, Payout: payout, PayoutClaimed: !win},
		ResolvedAt: &at,
	}
}

func TestLeaderboardTracksStreaksAndProfit(t *testing.T) {
	ledger, _ := newRedisLedger(t)
	board := services.NewLeaderboardService(ledger.Client(), "test")
	ctx := context.Background()

	games := []*models.GameSession{
		resolvedSession(alice, 0, 1_000, 1_960, true),
		resolvedSession(alice, 1, 1_000, 1_960, true),
		resolvedSession(alice, 2, 1_000, 0, false),
		resolvedSession(alice, 3, 1_000, 0, false),
		resolvedSession(alice, 4, 1_000, 0, false),
		resolvedSession(alice, 5, 2_000, 10_000, true),
	}
	for _, g := range games {
		require.NoError(t, board.RecordGame(ctx, g))
	}

	stats, err := board.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.GamesPlayed)
	assert.Equal(t, int64(3), stats.Wins)
	assert.Equal(t, int64(3), stats.Losses)
	assert.Equal(t, int64(7_000), stats.TotalWagered)
	assert.Equal(t, int64(13_920), stats.TotalWon)
	assert.Equal(t, int64(10_000), stats.BiggestWin)
	assert.Equal(t, int64(1), stats.CurrentStreak)
	assert.Equal(t, int64(3), stats.BestStreak)
	assert.Equal(t, int64(3_000), stats.TreasuryContribution)
	assert.Equal(t, int64(6_920), stats.NetProfit)
	assert.Equal(t, int64(1_700_000_005), stats.LastGameAt)
	assert.InDelta(t, 50.0, stats.WinRate(), 0.001)

	assert.ErrorIs(t, board.RecordGame(ctx, pendingSession(alice, 9)), models.ErrNotResolved)
}

func TestLeaderboardKeepsLargeAmountsExact(t *testing.T) {
	ledger, _ := newRedisLedger(t)
	board := services.NewLeaderboardService(ledger.Client(), "test")
	ctx := context.Background()

	// 2^53 + 2 lamports: the net of 2^53 + 1 has no exact double
	const payout = 9_007_199_254_740_994
	require.NoError(t, board.RecordGame(ctx, resolvedSession(alice, 0, 1, payout, true)))
	require.NoError(t, board.RecordGame(ctx, resolvedSession(alice, 1, 1, payout-1, true)))

	stats, err := board.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2*payout-3), stats.NetProfit)
	assert.Equal(t, int64(2*payout-1), stats.TotalWon)
	assert.Equal(t, int64(payout), stats.BiggestWin)

	err = board.RecordGame(ctx, resolvedSession(bob, 2, 0, math.MaxUint64, true))
	assert.ErrorIs(t, err, models.ErrOverflow)
	err = board.RecordGame(ctx, resolvedSession(bob, 3, math.MaxUint64, 0, false))
	assert.ErrorIs(t, err, models.ErrOverflow)

	stats, err = board.Stats(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, stats.GamesPlayed)
}

func TestLeaderboardRanksByNetProfit(t *testing.T) {
	ledger, mr := newRedisLedger(t)
	board := services.NewLeaderboardService(ledger.Client(), "test")
	ctx := context.Background()

	require.NoError(t, board.RecordGame(ctx, resolvedSession(alice, 0, 1_000, 0, false)))
	require.NoError(t, board.RecordGame(ctx, resolvedSession(bob, 1, 1_000, 1_960, true)))

	top, err := board.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, bob, top[0].Player)
	assert.Equal(t, int64(960), top[0].NetProfit)
	assert.InDelta(t, 100.0, top[0].WinRate, 0.001)
	assert.Equal(t, alice, top[1].Player)
	assert.Equal(t, int64(-1_000), top[1].NetProfit)

	_, err = board.Top(ctx, 3)
	require.NoError(t, err)
	assert.True(t, mr.Exists("casino:test:leaderboard:top:10"))
	assert.True(t, mr.Exists("casino:test:leaderboard:top:3"))
	cached, err := mr.Members("casino:test:leaderboard:cached")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"casino:test:leaderboard:top:10", "casino:test:leaderboard:top:3"}, cached)

	// a new result invalidates the cached ranking
	board.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:    models.EventSessionResolved,
		Player:  alice,
		Session: resolvedSession(alice, 2, 1_000, 10_000, true),
	})
	assert.False(t, mr.Exists("casino:test:leaderboard:top:10"))
	assert.False(t, mr.Exists("casino:test:leaderboard:top:3"))
	assert.False(t, mr.Exists("casino:test:leaderboard:cached"))

	top, err = board.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, alice, top[0].Player)
	assert.Equal(t, int64(8_000), top[0].NetProfit)
}

func TestLeaderboardIgnoresOtherEvents(t *testing.T) {
	ledger, _ := newRedisLedger(t)
	board := services.NewLeaderboardService(ledger.Client(), "test")
	ctx := context.Background()

	board.BroadcastEvent(ctx, &models.CasinoEvent{Type: models.EventBetPlaced, Player: alice, Session: pendingSession(alice, 0)})

	top, err := board.Top(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, top)

	stats, err := board.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, stats.GamesPlayed)
}
