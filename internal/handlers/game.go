package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"
)

type GameHandler struct {
	engine   *services.CasinoEngine
	fairness *services.FairnessSource
	audit    *services.AuditStore
}

// NewGameHandler wires the player endpoints. audit may be nil when the
// settlement trail is disabled.
func NewGameHandler(engine *services.CasinoEngine, fairness *services.FairnessSource, audit *services.AuditStore) *GameHandler {
	return &GameHandler{
		engine:   engine,
		fairness: fairness,
		audit:    audit,
	}
}

func (h *GameHandler) PlaceBet(c *gin.Context) {
	identity := c.GetString("identity")

	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	session, err := h.engine.PlaceBet(c.Request.Context(), identity, &req)
	if err != nil {
		respondError(c, "Failed to place bet", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

func (h *GameHandler) FulfillRandomness(c *gin.Context) {
	identity := c.GetString("identity")

	var req models.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	random, err := models.ParseRandomValue(req.RandomValue)
	if err != nil {
		respondError(c, "Invalid random value", err)
		return
	}

	session, err := h.engine.FulfillRandomness(c.Request.Context(), identity, req.Player, req.GameID, random)
	if err != nil {
		respondError(c, "Failed to fulfill randomness", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

func (h *GameHandler) ClaimPayout(c *gin.Context) {
	identity := c.GetString("identity")

	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	session, err := h.engine.ClaimPayout(c.Request.Context(), identity, req.GameID)
	if err != nil {
		respondError(c, "Failed to claim payout", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payout":  session.Result.Payout,
		"session": session,
	})
}

func (h *GameHandler) RefundExpired(c *gin.Context) {
	identity := c.GetString("identity")

	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	session, err := h.engine.RefundExpired(c.Request.Context(), identity, req.Player, req.GameID)
	if err != nil {
		respondError(c, "Failed to refund session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"refunded": session.BetAmount,
		"deposit":  session.StorageDeposit,
	})
}

func (h *GameHandler) GetSessions(c *gin.Context) {
	identity := c.GetString("identity")

	sessions, err := h.engine.PlayerSessions(c.Request.Context(), identity)
	if err != nil {
		respondError(c, "Failed to get sessions", err)
		return
	}

	if c.Query("status") == string(models.SessionStatusPending) {
		pending := sessions[:0]
		for _, s := range sessions {
			if s.Status == models.SessionStatusPending {
				pending = append(pending, s)
			}
		}
		sessions = pending
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *GameHandler) GetSession(c *gin.Context) {
	gameID, err := strconv.ParseUint(c.Param("game_id"), 10, 64)
	if err != nil {
		respondInvalid(c, err)
		return
	}

	session, err := h.engine.GetSession(c.Request.Context(), c.Param("player"), gameID)
	if err != nil {
		respondError(c, "Failed to get session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":   session,
		"unclaimed": session.HasUnclaimedPayout(),
	})
}

func (h *GameHandler) GetGameHistory(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Settlement history is disabled"})
		return
	}

	identity := c.GetString("identity")

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			respondInvalid(c, err)
			return
		}
		limit = n
	}

	records, err := h.audit.History(c.Request.Context(), identity, limit)
	if err != nil {
		respondError(c, "Failed to get game history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": records,
		"count":   len(records),
	})
}

func (h *GameHandler) GetFairness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"server_seed_hash": h.fairness.ServerSeedHash(),
		"client_seed":      h.fairness.ClientSeed(),
		"nonce":            "game_id",
	})
}

func (h *GameHandler) VerifyGame(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	verification, err := services.Verify(&req)
	if err != nil {
		respondError(c, "Failed to verify game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": verification,
	})
}
