package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefolio/chronicle/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7171, cfg.Server.Port)
	assert.Equal(t, config.EngineJSON, cfg.Storage.Engine)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, 10.0, cfg.Web.RateLimitPerSecond)
	assert.Equal(t, 20, cfg.Web.RateLimitBurst)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHRONICLE_PORT", "9090")
	t.Setenv("CHRONICLE_STORAGE_ENGINE", "sqlite")
	t.Setenv("CHRONICLE_DATA_PATH", "/var/lib/chronicle")
	t.Setenv("CHRONICLE_RATE_LIMIT_RPS", "2.5")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, config.EngineSQLite, cfg.Storage.Engine)
	assert.Equal(t, "/var/lib/chronicle", cfg.Storage.DataPath)
	assert.Equal(t, 2.5, cfg.Web.RateLimitPerSecond)
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	t.Setenv("CHRONICLE_STORAGE_ENGINE", "dynamodb")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage engine")
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	t.Setenv("CHRONICLE_STORAGE_ENGINE", "postgres")
	t.Setenv("CHRONICLE_POSTGRES_DSN", "")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("CHRONICLE_POSTGRES_DSN", "postgres://chronicle@localhost/chronicle?sslmode=disable")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.EnginePostgres, cfg.Storage.Engine)
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("CHRONICLE_PORT", "not-a-number")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 7171, cfg.Server.Port)
}
