package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrolops/api/internal/docstore"
	"patrolops/api/internal/middleware"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 3000, cfg.APIPort)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, docstore.BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 9, cfg.ShiftCutoffHour)
	assert.Equal(t, 9, cfg.ExportCutoffHour)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.RateLimit.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_PORT", "8081")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/ops.db")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("SHIFT_CUTOFF_HOUR", "7")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := Load()
	assert.Equal(t, 8081, cfg.APIPort)
	assert.Equal(t, docstore.BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 7, cfg.ShiftCutoffHour)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, docstore.Options{
		Backend:     docstore.BackendSQLite,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		SQLitePath:  "/tmp/ops.db",
	}, cfg.StoreOptions())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"backend", func(c *Config) { c.StoreBackend = "mongo" }},
		{"shift cutoff", func(c *Config) { c.ShiftCutoffHour = 24 }},
		{"export cutoff", func(c *Config) { c.ExportCutoffHour = -1 }},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"ttl", func(c *Config) { c.JWTTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Load()
	cfg.Timezone = "Nowhere/Invalid"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestRateLimitRuleForPath(t *testing.T) {
	cfg := Load()

	login := cfg.GetRateLimitRuleForPath("/api/v1/auth/login")
	assert.Equal(t, 5, login.Limit)
	assert.Equal(t, middleware.FixedWindow, login.Algorithm)

	other := cfg.GetRateLimitRuleForPath("/api/v1/operatives")
	assert.Equal(t, "*", other.Path)

	mc := login.ToMiddlewareConfig()
	assert.Equal(t, 60, mc.Window)
	assert.Equal(t, middleware.RateLimitByIP, mc.Type)
}

func TestNewLogger(t *testing.T) {
	cfg := Load()
	cfg.LogFormat = "console"
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	logger.Info("ready")

	cfg.LogLevel = "loud"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}
