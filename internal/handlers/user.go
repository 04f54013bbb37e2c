package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"
)

type UserHandler struct {
	engine      *services.CasinoEngine
	leaderboard *services.LeaderboardService
}

func NewUserHandler(engine *services.CasinoEngine, leaderboard *services.LeaderboardService) *UserHandler {
	return &UserHandler{
		engine:      engine,
		leaderboard: leaderboard,
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	identity, exists := c.Get("identity")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	player := identity.(string)
	ctx := c.Request.Context()

	balance, err := h.engine.Balance(ctx, player)
	if err != nil {
		respondError(c, "Failed to get balance", err)
		return
	}

	resp := gin.H{
		"identity": player,
		"role":     c.GetString("role"),
		"wallet": models.BalanceResponse{
			Identity:  player,
			Balance:   balance,
			Formatted: models.FormatLamports(balance),
		},
	}

	if h.leaderboard != nil {
		stats, err := h.leaderboard.Stats(ctx, player)
		if err != nil {
			respondError(c, "Failed to get player stats", err)
			return
		}
		resp["stats"] = stats
	}

	c.JSON(http.StatusOK, resp)
}
