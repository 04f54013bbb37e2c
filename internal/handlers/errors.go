package handlers

import (
	"errors"
	"net/http"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// statusFor maps a casino error code to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, services.ErrLedgerContention) {
		return http.StatusServiceUnavailable
	}

	switch models.CodeOf(err) {
	case models.CodeUnknown:
		return http.StatusInternalServerError
	case models.CodeUnauthorized:
		return http.StatusForbidden
	case models.CodeNotInitialized, models.CodeSessionNotFound:
		return http.StatusNotFound
	case models.CodeAlreadyInitialized, models.CodeAlreadyResolved, models.CodeNotResolved,
		models.CodeNothingToClaim, models.CodeSessionExpired, models.CodeSessionNotExpiredYet:
		return http.StatusConflict
	case models.CodeCasinoPaused:
		return http.StatusServiceUnavailable
	case models.CodeInsufficientPlayerFunds:
		return http.StatusPaymentRequired
	case models.CodeInsufficientVaultLiquidity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	body := gin.H{"error": message}

	if code := models.CodeOf(err); code != models.CodeUnknown {
		body["code"] = code
		body["details"] = err.Error()
	} else {
		logger.Error(c.Request.Context()).Err(err).Msg(message)
	}

	c.JSON(status, body)
}

func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}
