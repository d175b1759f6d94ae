package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 24*time.Hour, cfg.LedgerTTL)
	assert.Equal(t, time.Hour, cfg.ReaperInterval)
	assert.Equal(t, "dev", cfg.AuthMode)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: \"9090\"\nledgerTtl: 12h\nreaperInterval: 30m\ndevUser: file-user\n",
	), 0o600))
	t.Setenv("WAYFARER_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("LEDGER_TTL", "6h")

	cfg, err := Load()
	require.NoError(t, err)

	// Env wins over file, file wins over defaults.
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 6*time.Hour, cfg.LedgerTTL)
	assert.Equal(t, 30*time.Minute, cfg.ReaperInterval)
	assert.Equal(t, "file-user", cfg.DevUser)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "dynamo")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres needs a dsn", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "postgres")
		_, err := Load()
		assert.Error(t, err)

		t.Setenv("DATABASE_URL", "postgres://localhost:5432/wayfarer")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.StorageBackend)
	})

	t.Run("nonpositive durations", func(t *testing.T) {
		t.Setenv("LEDGER_TTL", "-1h")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("REAPER_INTERVAL", "hourly")
		_, err := Load()
		assert.ErrorContains(t, err, "REAPER_INTERVAL")
	})
}
