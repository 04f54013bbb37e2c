package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"casino-vault-backend/internal/models"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	RedisURL  string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	ProgramID string `env:"CASINO_PROGRAM_ID" envDefault:"casino"`

	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`

	RandomnessMode string `env:"RANDOMNESS_MODE" envDefault:"mock"`
	OracleFeed     string `env:"ORACLE_FEED"`

	SessionExpiry  time.Duration `env:"SESSION_EXPIRY" envDefault:"1h"`
	PlayerBuffer   uint64        `env:"PLAYER_BALANCE_BUFFER" envDefault:"10000000"`
	SessionDeposit uint64        `env:"SESSION_DEPOSIT" envDefault:"2000000"`

	KeeperInterval    time.Duration `env:"KEEPER_INTERVAL" envDefault:"30s"`
	OracleAutoFulfill bool          `env:"ORACLE_AUTO_FULFILL" envDefault:"false"`

	AuditDriver      string `env:"AUDIT_DRIVER" envDefault:"sqlite"`
	AuditDatabaseURL string `env:"AUDIT_DATABASE_URL" envDefault:"casino_audit.db"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	RateLimitBets int `env:"RATE_LIMIT_BETS" envDefault:"30"` // per minute
}

// Load reads the configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !models.RandomnessMode(c.RandomnessMode).Valid() {
		return fmt.Errorf("RANDOMNESS_MODE must be mock or oracle, got %q", c.RandomnessMode)
	}
	if c.SessionDeposit > c.PlayerBuffer {
		return fmt.Errorf("SESSION_DEPOSIT (%d) cannot exceed PLAYER_BALANCE_BUFFER (%d)", c.SessionDeposit, c.PlayerBuffer)
	}
	if c.SessionExpiry < time.Second {
		return fmt.Errorf("SESSION_EXPIRY must be at least one second")
	}
	switch c.AuditDriver {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("AUDIT_DRIVER must be sqlite, postgres or none, got %q", c.AuditDriver)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
