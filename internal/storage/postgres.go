package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = dialect{
	name: "postgres",
	schema: `
	CREATE TABLE IF NOT EXISTS search_cache (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		expires_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_cache_expires ON search_cache(expires_at);
	`,
	get: `SELECT value, expires_at FROM search_cache WHERE key = $1`,
	upsert: `INSERT INTO search_cache (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
	delete: `DELETE FROM search_cache WHERE key = $1`,
	purge:  `DELETE FROM search_cache WHERE expires_at <= $1`,
}

// PostgresCache implements Cache using PostgreSQL
type PostgresCache struct {
	*sqlCache
}

// NewPostgresCache connects to url and migrates the cache table
func NewPostgresCache(url string, logger *slog.Logger) (*PostgresCache, error) {
	if url == "" {
		return nil, errors.New("postgres cache requires DATABASE_URL")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	c := &PostgresCache{sqlCache: newSQLCache(db, postgresDialect, logger, 10*time.Minute)}
	if err := c.Migrate(context.Background()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
