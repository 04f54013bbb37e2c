package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/middleware"
	"casino-vault-backend/internal/services"
)

// RouterDeps collects what the HTTP API needs. Leaderboard, Audit,
// RateLimiter and Health are optional.
type RouterDeps struct {
	Engine        *services.CasinoEngine
	Fairness      *services.FairnessSource
	JWT           *services.JWTService
	Hub           *WebSocketHub
	Leaderboard   *services.LeaderboardService
	Audit         *services.AuditStore
	RateLimiter   middleware.RateLimiter
	BetsPerMinute int
	Health        func(ctx context.Context) error
}

func NewRouter(d RouterDeps) *gin.Engine {
	gameHandler := NewGameHandler(d.Engine, d.Fairness, d.Audit)
	casinoHandler := NewCasinoHandler(d.Engine, d.Leaderboard)
	adminHandler := NewAdminHandler(d.Engine, d.Fairness)
	userHandler := NewUserHandler(d.Engine, d.Leaderboard)

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+logger.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(d.JWT))
	if d.RateLimiter != nil {
		protected.Use(middleware.RateLimitMiddleware(d.RateLimiter, d.BetsPerMinute))
	}
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/casino", casinoHandler.GetCasino)
		protected.GET("/leaderboard", casinoHandler.GetLeaderboard)

		if d.Hub != nil {
			wsHandler := NewWebSocketHandler(d.Engine, d.Hub)
			protected.GET("/ws", wsHandler.HandleWebSocket)
		}

		games := protected.Group("/games")
		{
			games.POST("/bet", gameHandler.PlaceBet)
			games.POST("/fulfill", gameHandler.FulfillRandomness)
			games.POST("/claim", gameHandler.ClaimPayout)
			games.POST("/refund", gameHandler.RefundExpired)
			games.GET("/sessions", gameHandler.GetSessions)
			games.GET("/sessions/:player/:game_id", gameHandler.GetSession)
			games.GET("/history", gameHandler.GetGameHistory)

			games.GET("/fairness", gameHandler.GetFairness)
			games.POST("/verify", gameHandler.VerifyGame)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireOperator())
		{
			admin.POST("/initialize", adminHandler.Initialize)
			admin.POST("/pause", adminHandler.Pause)
			admin.POST("/resume", adminHandler.Resume)
			admin.POST("/skim", adminHandler.Skim)
			admin.POST("/fund", adminHandler.Fund)
			admin.POST("/fairness/rotate", adminHandler.RotateSeed)
		}
	}

	return router
}
