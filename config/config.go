package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Empty DATABASE_URL / REDIS_ADDR in local selects the in-memory stores.
	DatabaseURL    string `env:"DATABASE_URL"     validate:"required_if=Env production,required_if=Env staging"`
	RedisAddr      string `env:"REDIS_ADDR"       validate:"required_if=Env production,required_if=Env staging"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"anonbox" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	CodeTTL            time.Duration `env:"CODE_TTL"             envDefault:"10m" validate:"min=1m"`
	PendingBackstopTTL time.Duration `env:"PENDING_BACKSTOP_TTL" envDefault:"11m" validate:"gtefield=CodeTTL"`
	PendingSweepSpec   string        `env:"PENDING_SWEEP_SPEC"   envDefault:"@every 1m" validate:"required"`

	JWTSecret  string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	SessionTTL time.Duration `env:"SESSION_TTL"         envDefault:"24h" validate:"min=1m"`
	BcryptCost int           `env:"BCRYPT_COST"         envDefault:"10" validate:"min=4,max=31"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	StatsTimezone string `env:"STATS_TIMEZONE" envDefault:"UTC" validate:"required,timezone"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DevMode reports whether email dispatch failures may be downgraded to
// surfacing the verification code to the caller.
func (c *Config) DevMode() bool {
	return c.Env == "local"
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) StatsLocation() *time.Location {
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		// validated by the timezone tag
		return time.UTC
	}
	return loc
}
