package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, 24, cfg.DefaultExpiryHours)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "PGX")
	t.Setenv("LOW_STOCK_THRESHOLD", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, 5, cfg.LowStockThreshold)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DEFAULT_EXPIRY_HOURS: 48\nREDIS_ADDR: localhost:6379\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 48, cfg.DefaultExpiryHours)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("HTTP_PORT", "http")
	_, err := Load("")
	assert.ErrorContains(t, err, "HTTP_PORT")

	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DB_DRIVER", "oracle")
	_, err = Load("")
	assert.ErrorContains(t, err, "DB_DRIVER")
}
