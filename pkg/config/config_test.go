package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Greater(t, cfg.FetchWorkers, 0)
	assert.Greater(t, cfg.RequestsPerSec, 0.0)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HUNTER_DATA_DIR", "/tmp/hunter-data")
	t.Setenv("HUNTER_FETCH_WORKERS", "16")
	t.Setenv("HUNTER_FETCH_TIMEOUT", "30s")
	t.Setenv("HUNTER_REQUESTS_PER_SEC", "2.5")
	t.Setenv("HUNTER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/hunter-data", cfg.DataDir)
	assert.Equal(t, 16, cfg.FetchWorkers)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2.5, cfg.RequestsPerSec)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.FetchWorkers = 0
	assert.Error(t, cfg.Validate())

	cfg.FetchWorkers = 8
	cfg.RequestsPerSec = -1
	assert.Error(t, cfg.Validate())
}

func TestDerivedPaths(t *testing.T) {
	t.Setenv("HUNTER_DATA_DIR", "/var/lib/hunter")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/var/lib/hunter", "cache"), cfg.CacheDir())
	assert.Equal(t, filepath.Join("/var/lib/hunter", "rps"), cfg.RPSDir())
	assert.Equal(t, filepath.Join("/var/lib/hunter", "positions.json"), cfg.PositionsFile())
	assert.Equal(t, filepath.Join("/var/lib/hunter", "trades.json"), cfg.TradesFile())
}
