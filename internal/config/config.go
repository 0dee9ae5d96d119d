package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	ListenAddr string

	CatalogSource        string
	CatalogFields        string
	CatalogFetchTimeoutS int

	RulesFile       string
	LooterAllowlist []string

	UploadField    string
	MaxUploadBytes int64

	HistoryBackend string
	HistoryFile    string
	RedisURL       string
	DatabaseURL    string
	SQLitePath     string

	StaticDir      string
	AllowedOrigins []string
	MessagesDir    string
}

// History backends accepted by HISTORY_BACKEND.
const (
	HistoryFile     = "file"
	HistoryRedis    = "redis"
	HistoryPostgres = "postgres"
	HistorySQLite   = "sqlite"
	HistoryNone     = "none"
)

func Load() (*AppConfig, error) {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg := &AppConfig{
		ListenAddr:           ":8080",
		CatalogFetchTimeoutS: 10,
		UploadField:          "logFile",
		MaxUploadBytes:       10 << 20,
		HistoryBackend:       HistoryFile,
		HistoryFile:          "loot_history.txt",
		SQLitePath:           "lootsync.db",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	} else if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ListenAddr = ":" + v
	}

	cfg.CatalogSource = strings.TrimSpace(os.Getenv("CATALOG_SOURCE"))
	cfg.CatalogFields = strings.TrimSpace(os.Getenv("CATALOG_FIELDS"))
	if v := strings.TrimSpace(os.Getenv("CATALOG_FETCH_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CatalogFetchTimeoutS = n
		}
	}

	cfg.RulesFile = strings.TrimSpace(os.Getenv("LOOT_RULES_FILE"))
	cfg.LooterAllowlist = splitList(os.Getenv("LOOTER_ALLOWLIST"))

	if v := strings.TrimSpace(os.Getenv("UPLOAD_FIELD")); v != "" {
		cfg.UploadField = v
	}
	if v := strings.TrimSpace(os.Getenv("MAX_UPLOAD_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("HISTORY_BACKEND"))); v != "" {
		cfg.HistoryBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_FILE")); v != "" {
		cfg.HistoryFile = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("SQLITE_PATH")); v != "" {
		cfg.SQLitePath = v
	}

	cfg.StaticDir = strings.TrimSpace(os.Getenv("STATIC_DIR"))
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.HistoryBackend {
	case HistoryFile, HistoryNone, HistorySQLite:
	case HistoryRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for HISTORY_BACKEND=%s", c.HistoryBackend)
		}
	case HistoryPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for HISTORY_BACKEND=%s", c.HistoryBackend)
		}
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND %q", c.HistoryBackend)
	}
	if c.UploadField == "" {
		return fmt.Errorf("UPLOAD_FIELD must not be empty")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
