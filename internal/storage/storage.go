// Package storage provides the search result cache backends.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pendergraft/tokenscope/internal/config"
)

// Cache is a key/value store with per-entry TTL. Implementations are safe for
// concurrent use; concurrent writers to one key resolve last-writer-wins.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// New creates a cache based on configuration
func New(cfg config.CacheConfig, logger *slog.Logger) (Cache, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryCache(cfg.MaxEntries)
	case "redis":
		return NewRedisCacheFromURL(cfg.Redis.URL, logger)
	case "sqlite":
		return NewSQLiteCache(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresCache(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
