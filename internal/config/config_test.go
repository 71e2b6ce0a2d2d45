package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.ExchangeAPIURL)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.CachePath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EXCHANGE_API_URL", "http://example.com/api/v1")
	t.Setenv("GO_PORT", "9000")
	t.Setenv("REFRESH_INTERVAL_MINUTES", "0")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/api/v1", cfg.ExchangeAPIURL)
	assert.Equal(t, 9000, cfg.Port)
	assert.Zero(t, cfg.RefreshEvery)
	assert.True(t, cfg.DevMode)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("GO_PORT", "99999")

	_, err := Load()
	assert.Error(t, err)
}
