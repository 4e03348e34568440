package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/config"
)

func TestLoad_MissingSecretsFails(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("STORE_URI", "")
	t.Setenv("CACHE_URI", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
	assert.Contains(t, err.Error(), "STORE_URI")
	assert.Contains(t, err.Error(), "CACHE_URI")
}

func TestLoad_AppliesDefaultsWhenSecretsPresent(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("STORE_URI", "mongodb://localhost:27017")
	t.Setenv("CACHE_URI", "localhost:6379")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500, cfg.RateLimitPerMinute)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "mcpgateway", cfg.StoreDatabase)
}

func TestLoad_RateLimitEnvOverride(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("STORE_URI", "mongodb://localhost:27017")
	t.Setenv("CACHE_URI", "localhost:6379")
	t.Setenv("RATE_LIMIT", "120/minute")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}
