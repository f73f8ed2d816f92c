package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leonardcser/showtime-mcp/internal/config"
)

// OpenBackend opens the backend selected by cfg.CacheBackend.
func OpenBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.CacheBackend {
	case config.BackendBolt, "":
		if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		return OpenBolt(cfg.CachePath, BoltOptions{})
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.CachePath)
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, 0)
	case config.BackendRedis:
		return OpenRedis(ctx, RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	case config.BackendDaemon:
		return Dial(ctx, cfg.CacheSocket)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
