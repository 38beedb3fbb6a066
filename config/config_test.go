package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/anonbox/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "config-test-secret-with-32-chars!"

func TestLoad_LocalDefaults(t *testing.T) {
	t.Setenv("ENV", "local")
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.CodeTTL)
	assert.Equal(t, 11*time.Minute, cfg.PendingBackstopTTL)
	assert.Equal(t, "anonbox", cfg.RedisKeyPrefix)
	assert.True(t, cfg.DevMode())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, time.UTC, cfg.StatsLocation())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("ENV", "local")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_BackstopShorterThanCode(t *testing.T) {
	t.Setenv("ENV", "local")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CODE_TTL", "10m")
	t.Setenv("PENDING_BACKSTOP_TTL", "5m")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresStores(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")

	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/anonbox")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("RESEND_FROM", "noreply@example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.DevMode())
}

func TestLoad_Timezone(t *testing.T) {
	t.Setenv("ENV", "local")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STATS_TIMEZONE", "Asia/Bishkek")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bishkek", cfg.StatsLocation().String())

	t.Setenv("STATS_TIMEZONE", "Mars/Olympus")
	_, err = config.Load()
	assert.Error(t, err)
}
