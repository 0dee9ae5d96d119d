package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "PORT", "CATALOG_SOURCE", "CATALOG_FIELDS", "CATALOG_FETCH_TIMEOUT_SEC",
		"LOOT_RULES_FILE", "LOOTER_ALLOWLIST", "UPLOAD_FIELD", "MAX_UPLOAD_BYTES",
		"HISTORY_BACKEND", "HISTORY_FILE", "REDIS_URL", "DATABASE_URL", "SQLITE_PATH",
		"STATIC_DIR", "ALLOWED_ORIGINS", "MESSAGES_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "logFile", cfg.UploadField)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, HistoryFile, cfg.HistoryBackend)
	assert.Equal(t, "loot_history.txt", cfg.HistoryFile)
	assert.Equal(t, 10, cfg.CatalogFetchTimeoutS)
	assert.Empty(t, cfg.LooterAllowlist)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOOTER_ALLOWLIST", "Alexr, Bob ,,")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")
	t.Setenv("CATALOG_FETCH_TIMEOUT_SEC", "-3")
	t.Setenv("HISTORY_BACKEND", "SQLite")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, []string{"Alexr", "Bob"}, cfg.LooterAllowlist)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 10, cfg.CatalogFetchTimeoutS)
	assert.Equal(t, HistorySQLite, cfg.HistoryBackend)
	assert.Len(t, cfg.AllowedOrigins, 2)

	t.Setenv("LISTEN_ADDR", "127.0.0.1:7000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddr)
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORY_BACKEND", "redis")
	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_URL")

	t.Setenv("HISTORY_BACKEND", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("HISTORY_BACKEND", "mongo")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("HISTORY_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/loot?sslmode=disable")
	_, err = Load()
	assert.NoError(t, err)
}
