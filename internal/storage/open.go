package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/turnkeeper/internal/config"
)

// Open creates the store selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return NewFileStore(cfg.SavePath, logger), nil
	case config.BackendRedis:
		rs, err := NewRedisStore(cfg.RedisURL, cfg.SaveSlot, logger)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx, 30, 2*time.Second); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return rs, nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath, cfg.SaveSlot, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
