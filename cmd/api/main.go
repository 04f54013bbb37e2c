package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"casino-vault-backend/internal/config"
	"casino-vault-backend/internal/handlers"
	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Global().Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.LogFile != "" {
		if err := logger.InitWithFile(cfg.LogFile, cfg.LogLevel, cfg.LogFormat); err != nil {
			logger.Global().Fatal().Err(err).Msg("failed to open log file")
		}
	} else {
		logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}
	log := logger.Global()
	if envErr != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	fairness, err := services.NewFairnessSource(cfg.ProgramID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed fairness source")
	}

	hub := handlers.NewWebSocketHub()
	leaderboard := services.NewLeaderboardService(redisService.Client(), cfg.ProgramID)
	broadcasters := services.MultiBroadcaster{hub, leaderboard}

	var audit *services.AuditStore
	if cfg.AuditDriver != "none" {
		db, err := services.OpenAuditDB(cfg.AuditDriver, cfg.AuditDatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open audit database")
		}
		audit, err = services.NewAuditStore(db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to prepare audit store")
		}
		broadcasters = append(broadcasters, audit)
	}

	engine := services.NewCasinoEngine(redisService, services.EngineOptions{
		ProgramID:             cfg.ProgramID,
		SessionExpiry:         cfg.SessionExpiry,
		PlayerBuffer:          cfg.PlayerBuffer,
		SessionDeposit:        cfg.SessionDeposit,
		DefaultRandomnessMode: models.RandomnessMode(cfg.RandomnessMode),
		Broadcaster:           broadcasters,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keeper := services.NewOracleKeeper(engine, fairness, cfg.KeeperInterval, cfg.OracleAutoFulfill)
	go keeper.Run(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Engine:        engine,
		Fairness:      fairness,
		JWT:           jwtService,
		Hub:           hub,
		Leaderboard:   leaderboard,
		Audit:         audit,
		RateLimiter:   redisService,
		BetsPerMinute: cfg.RateLimitBets,
		Health:        redisService.Ping,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("program_id", cfg.ProgramID).
			Str("randomness_mode", cfg.RandomnessMode).
			Str("server_seed_hash", fairness.ServerSeedHash()).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
