package history

import (
	"context"
	"fmt"

	"github.com/park285/lootsync/internal/config"
)

// Open builds the store selected by cfg.HistoryBackend.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.HistoryBackend {
	case config.HistoryFile:
		return NewFileStore(cfg.HistoryFile), nil
	case config.HistoryRedis:
		return NewRedisStoreFromURL(ctx, cfg.RedisURL)
	case config.HistoryPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.HistorySQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.HistoryNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.HistoryBackend)
	}
}
