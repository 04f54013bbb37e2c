package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"
)

// AdminHandler serves the operator endpoints. The engine still checks the
// caller against the stored authority.
type AdminHandler struct {
	engine   *services.CasinoEngine
	fairness *services.FairnessSource
}

func NewAdminHandler(engine *services.CasinoEngine, fairness *services.FairnessSource) *AdminHandler {
	return &AdminHandler{engine: engine, fairness: fairness}
}

func (h *AdminHandler) Initialize(c *gin.Context) {
	identity := c.GetString("identity")

	var req models.InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	cfg, err := h.engine.Initialize(c.Request.Context(), identity, models.InitializeParams{
		MinBet:         req.MinBet,
		MaxBet:         req.MaxBet,
		InitialFunding: req.InitialFunding,
		RandomnessMode: models.RandomnessMode(req.RandomnessMode),
		OracleFeed:     req.OracleFeed,
	})
	if err != nil {
		respondError(c, "Failed to initialize casino", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"config":  cfg,
	})
}

func (h *AdminHandler) Pause(c *gin.Context) {
	if err := h.engine.Pause(c.Request.Context(), c.GetString("identity")); err != nil {
		respondError(c, "Failed to pause casino", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "is_active": false})
}

func (h *AdminHandler) Resume(c *gin.Context) {
	if err := h.engine.Resume(c.Request.Context(), c.GetString("identity")); err != nil {
		respondError(c, "Failed to resume casino", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "is_active": true})
}

func (h *AdminHandler) Skim(c *gin.Context) {
	var req models.SkimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	record, err := h.engine.SkimExcessToTreasury(c.Request.Context(), c.GetString("identity"), req.Amount, req.MinVaultReserve)
	if err != nil {
		respondError(c, "Failed to skim vault", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"skim":    record,
	})
}

func (h *AdminHandler) Fund(c *gin.Context) {
	var req models.FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	vault, err := h.engine.FundVault(c.Request.Context(), c.GetString("identity"), req.Amount)
	if err != nil {
		respondError(c, "Failed to fund vault", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"vault_balance": vault,
		"formatted":     models.FormatLamports(vault),
	})
}

// RotateSeed reveals the current server seed so past draws can be verified.
func (h *AdminHandler) RotateSeed(c *gin.Context) {
	revealed, err := h.fairness.Rotate()
	if err != nil {
		respondError(c, "Failed to rotate server seed", err)
		return
	}

	logger.Info(c.Request.Context()).Str("operator", c.GetString("identity")).Msg("server seed rotated")

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"revealed_server_seed": revealed,
		"server_seed_hash":     h.fairness.ServerSeedHash(),
	})
}
