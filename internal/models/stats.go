package models

// PlayerStats are lifetime per-player aggregates kept for the leaderboard.
type PlayerStats struct {
	Player               string `json:"player" redis:"player"`
	GamesPlayed          int64  `json:"games_played" redis:"games_played"`
	Wins                 int64  `json:"wins" redis:"wins"`
	Losses               int64  `json:"losses" redis:"losses"`
	TotalWagered         int64  `json:"total_wagered" redis:"total_wagered"`
	TotalWon             int64  `json:"total_won" redis:"total_won"`
	BiggestWin           int64  `json:"biggest_win" redis:"biggest_win"`
	CurrentStreak        int64  `json:"current_streak" redis:"current_streak"` // negative while losing
	BestStreak           int64  `json:"best_streak" redis:"best_streak"`
	TreasuryContribution int64  `json:"treasury_contribution" redis:"treasury_contribution"`
	NetProfit            int64  `json:"net_profit" redis:"net_profit"`
	LastGameAt           int64  `json:"last_game_at" redis:"last_game_at"`
}

type LeaderboardEntry struct {
	Rank int `json:"rank"`
	PlayerStats
	WinRate float64 `json:"win_rate"`
}

func (s *PlayerStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}
