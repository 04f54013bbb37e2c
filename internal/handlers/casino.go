package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"
)

// CasinoHandler serves the public casino state and the leaderboard.
type CasinoHandler struct {
	engine      *services.CasinoEngine
	leaderboard *services.LeaderboardService
}

func NewCasinoHandler(engine *services.CasinoEngine, leaderboard *services.LeaderboardService) *CasinoHandler {
	return &CasinoHandler{engine: engine, leaderboard: leaderboard}
}

func (h *CasinoHandler) GetCasino(c *gin.Context) {
	ctx := c.Request.Context()

	cfg, err := h.engine.GetConfig(ctx)
	if err != nil {
		respondError(c, "Failed to get casino", err)
		return
	}
	vault, err := h.engine.VaultBalance(ctx)
	if err != nil {
		respondError(c, "Failed to get vault balance", err)
		return
	}
	treasury, err := h.engine.TreasuryBalance(ctx)
	if err != nil {
		respondError(c, "Failed to get treasury balance", err)
		return
	}

	c.JSON(http.StatusOK, models.CasinoResponse{
		Config:          cfg,
		VaultBalance:    vault,
		TreasuryBalance: treasury,
		VaultFormatted:  models.FormatLamports(vault),
		Solvent:         cfg.IsSolvent(),
	})
}

func (h *CasinoHandler) GetLeaderboard(c *gin.Context) {
	if h.leaderboard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Leaderboard is disabled"})
		return
	}

	var limit int64 = 10
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil {
			respondInvalid(c, err)
			return
		}
		limit = n
	}

	entries, err := h.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "Failed to get leaderboard", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"count":       len(entries),
	})
}
