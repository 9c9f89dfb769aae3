package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Refresh.TTL)
	assert.Equal(t, 32, cfg.Refresh.SecretBytes)
	assert.True(t, decimal.RequireFromString("1.00").Equal(cfg.Labels.Price))
	assert.Equal(t, 3, cfg.Tracking.MaxAttempts)
	assert.Contains(t, cfg.Database.DSN(), "dbname=labeldesk")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("LABEL_PRICE", "2.456")
	t.Setenv("REFRESH_TTL", "48h")
	t.Setenv("ARGON2_MEMORY", "1024")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "2.46", cfg.Labels.Price.StringFixed(2))
	assert.Equal(t, 48*time.Hour, cfg.Refresh.TTL)
	assert.Equal(t, uint32(1024), cfg.Argon2.Memory)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET_KEY=from-file\nPORT=9090\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "from-file", cfg.JWT.SecretKey)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("non-positive label price", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "test-secret")
		t.Setenv("LABEL_PRICE", "0")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("short refresh secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "test-secret")
		t.Setenv("REFRESH_SECRET_BYTES", "8")
		_, err := Load("")
		assert.Error(t, err)
	})
}
