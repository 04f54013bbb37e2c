package services

import (
	"fmt"
	"time"
)

const (
	KeyConfig          = "casino:%s:config"
	KeySession         = "casino:%s:session:%s:%d"
	KeyPlayerSessions  = "casino:%s:player:%s:sessions"
	KeyPendingSessions = "casino:%s:sessions:pending"
	KeyBalance         = "casino:%s:balance:%s"
	KeyRateLimit       = "casino:%s:ratelimit:%s:%s"
	KeyPlayerStats     = "casino:%s:stats:%s"
	KeyLeaderboard     = "casino:%s:leaderboard"
	KeyLeaderboardTop  = "casino:%s:leaderboard:top:%d"
	KeyLeaderboardKeys = "casino:%s:leaderboard:cached"

	TTLLeaderboardCache = 30 * time.Second

	DefaultRateLimitBets = 30 // per minute
	DefaultMaxTxRetries  = 64
)

// keyspace derives every storage key from the program id, so two casinos
// can share one Redis without colliding.
type keyspace string

func (k keyspace) config() string {
	return fmt.Sprintf(KeyConfig, k)
}

func (k keyspace) session(player string, gameID uint64) string {
	return fmt.Sprintf(KeySession, k, player, gameID)
}

func (k keyspace) playerSessions(player string) string {
	return fmt.Sprintf(KeyPlayerSessions, k, player)
}

func (k keyspace) pendingSessions() string {
	return fmt.Sprintf(KeyPendingSessions, k)
}

func (k keyspace) balance(account string) string {
	return fmt.Sprintf(KeyBalance, k, account)
}

func (k keyspace) rateLimit(identity, action string) string {
	return fmt.Sprintf(KeyRateLimit, k, identity, action)
}

func (k keyspace) playerStats(player string) string {
	return fmt.Sprintf(KeyPlayerStats, k, player)
}

func (k keyspace) leaderboard() string {
	return fmt.Sprintf(KeyLeaderboard, k)
}

func (k keyspace) leaderboardCache(n int64) string {
	return fmt.Sprintf(KeyLeaderboardTop, k, n)
}

func (k keyspace) leaderboardCached() string {
	return fmt.Sprintf(KeyLeaderboardKeys, k)
}
