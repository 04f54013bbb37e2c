package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/services"
)

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			// browsers cannot set headers on a websocket upgrade
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("identity", claims.Identity)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireOperator admits only operator tokens. It runs after AuthMiddleware.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != services.RoleOperator {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operator role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, identity, action string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware caps the settlement endpoints per identity and minute.
func RateLimitMiddleware(limiter RateLimiter, betsPerMinute int) gin.HandlerFunc {
	if betsPerMinute <= 0 {
		betsPerMinute = services.DefaultRateLimitBets
	}

	return func(c *gin.Context) {
		identity := c.GetString("identity")
		if identity == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var action string
		var limit int
		window := time.Minute

		switch {
		case strings.HasSuffix(path, "/games/bet"):
			action, limit = "bet", betsPerMinute
		case strings.HasSuffix(path, "/games/fulfill"):
			action, limit = "fulfill", 120
		case strings.HasSuffix(path, "/games/claim"):
			action, limit = "claim", 60
		case strings.HasSuffix(path, "/games/refund"):
			action, limit = "refund", 60
		default:
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), identity, action, limit, window)
		if err != nil {
			logger.Error(c.Request.Context()).Err(err).Msg("rate limit check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
