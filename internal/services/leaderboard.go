package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// recordGameScript folds one resolved game into the player's stats hash and
// re-ranks the player by net profit. A win extends a positive streak, a loss
// extends a negative one. Amounts stay decimal strings: Lua numbers are
// doubles and lose lamports above 2^53.
var recordGameScript = redis.NewScript(`
	local stats = KEYS[1]
	local board = KEYS[2]
	local bet = ARGV[2]
	local payout = ARGV[3]
	local won = ARGV[4] == "1"

	local function greater(a, b)
		if #a ~= #b then return #a > #b end
		return a > b
	end

	redis.call("HSET", stats, "player", ARGV[1], "last_game_at", ARGV[5])
	redis.call("HINCRBY", stats, "games_played", 1)
	redis.call("HINCRBY", stats, "total_wagered", bet)
	redis.call("HINCRBY", stats, "total_won", payout)

	local streak = tonumber(redis.call("HGET", stats, "current_streak") or "0")
	if won then
		redis.call("HINCRBY", stats, "wins", 1)
		local biggest = redis.call("HGET", stats, "biggest_win") or "0"
		if greater(payout, biggest) then
			redis.call("HSET", stats, "biggest_win", payout)
		end
		if streak >= 0 then streak = streak + 1 else streak = 1 end
	else
		redis.call("HINCRBY", stats, "losses", 1)
		redis.call("HINCRBY", stats, "treasury_contribution", bet)
		if streak <= 0 then streak = streak - 1 else streak = -1 end
	end
	redis.call("HSET", stats, "current_streak", streak)

	local best = tonumber(redis.call("HGET", stats, "best_streak") or "0")
	if math.abs(streak) > best then
		redis.call("HSET", stats, "best_streak", math.abs(streak))
	end

	local net = redis.call("HINCRBY", stats, "net_profit", ARGV[6])
	redis.call("ZADD", board, net, ARGV[1])
	return net
`)

// LeaderboardService keeps per-player statistics in Redis and ranks players
// by net profit. It subscribes to resolved sessions.
type LeaderboardService struct {
	client *redis.Client
	keys   keyspace
}

func NewLeaderboardService(client *redis.Client, programID string) *LeaderboardService {
	return &LeaderboardService{client: client, keys: keyspace(programID)}
}

func (l *LeaderboardService) BroadcastEvent(ctx context.Context, event *models.CasinoEvent) {
	if event.Type != models.EventSessionResolved || event.Session == nil || event.Session.Result == nil {
		return
	}
	if err := l.RecordGame(ctx, event.Session); err != nil {
		logger.Warn(ctx).Err(err).Str("player", event.Player).Msg("failed to update leaderboard")
	}
}

// RecordGame counts a resolved session. A deferred win counts as won even
// before it is claimed.
func (l *LeaderboardService) RecordGame(ctx context.Context, session *models.GameSession) error {
	if session.Result == nil {
		return models.ErrNotResolved
	}
	won := "0"
	if session.Result.IsWin {
		won = "1"
	}
	var at int64
	if session.ResolvedAt != nil {
		at = *session.ResolvedAt
	}

	net, err := netDelta(session.BetAmount, session.Result.Payout)
	if err != nil {
		return err
	}

	keys := []string{l.keys.playerStats(session.Player), l.keys.leaderboard()}
	err = recordGameScript.Run(ctx, l.client, keys,
		session.Player,
		strconv.FormatUint(session.BetAmount, 10),
		strconv.FormatUint(session.Result.Payout, 10),
		won, at,
		strconv.FormatInt(net, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to record game: %w", err)
	}

	return l.invalidate(ctx)
}

// netDelta is payout minus bet as a signed value. The stats hash holds
// int64 counters, so a delta outside that range is refused.
func netDelta(bet, payout uint64) (int64, error) {
	if payout >= bet {
		if payout-bet > math.MaxInt64 {
			return 0, models.ErrOverflow
		}
		return int64(payout - bet), nil
	}
	if bet-payout > math.MaxInt64 {
		return 0, models.ErrOverflow
	}
	return -int64(bet - payout), nil
}

func (l *LeaderboardService) Stats(ctx context.Context, player string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	if err := l.client.HGetAll(ctx, l.keys.playerStats(player)).Scan(&stats); err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	stats.Player = player
	return &stats, nil
}

// Top returns the n most profitable players. Results are cached briefly.
func (l *LeaderboardService) Top(ctx context.Context, n int64) ([]*models.LeaderboardEntry, error) {
	if n <= 0 || n > 100 {
		n = 10
	}

	cacheKey := l.keys.leaderboardCache(n)
	if data, err := l.client.Get(ctx, cacheKey).Bytes(); err == nil {
		var cached []*models.LeaderboardEntry
		if json.Unmarshal(data, &cached) == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read leaderboard cache: %w", err)
	}

	players, err := l.client.ZRevRange(ctx, l.keys.leaderboard(), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	pipe := l.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(players))
	for i, player := range players {
		cmds[i] = pipe.HGetAll(ctx, l.keys.playerStats(player))
	}
	if len(players) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to load player stats: %w", err)
		}
	}

	entries := make([]*models.LeaderboardEntry, 0, len(players))
	for i, cmd := range cmds {
		entry := &models.LeaderboardEntry{Rank: i + 1}
		if err := cmd.Scan(&entry.PlayerStats); err != nil {
			return nil, fmt.Errorf("failed to scan player stats: %w", err)
		}
		entry.Player = players[i]
		entry.WinRate = entry.PlayerStats.WinRate()
		entries = append(entries, entry)
	}

	if data, err := json.Marshal(entries); err == nil {
		_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey, data, TTLLeaderboardCache)
			pipe.SAdd(ctx, l.keys.leaderboardCached(), cacheKey)
			return nil
		})
		if err != nil {
			logger.Warn(ctx).Err(err).Msg("failed to cache leaderboard")
		}
	}
	return entries, nil
}

// invalidate drops every cached ranking. The cached keys are tracked in a
// set so this never scans the keyspace.
func (l *LeaderboardService) invalidate(ctx context.Context) error {
	cached, err := l.client.SMembers(ctx, l.keys.leaderboardCached()).Result()
	if err != nil || len(cached) == 0 {
		return err
	}
	return l.client.Del(ctx, append(cached, l.keys.leaderboardCached())...).Err()
}
