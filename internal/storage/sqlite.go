package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `
	CREATE TABLE IF NOT EXISTS search_cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_cache_expires ON search_cache(expires_at);
	`,
	get: `SELECT value, expires_at FROM search_cache WHERE key = ?`,
	upsert: `INSERT INTO search_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
	delete: `DELETE FROM search_cache WHERE key = ?`,
	purge:  `DELETE FROM search_cache WHERE expires_at <= ?`,
}

// SQLiteCache implements Cache using SQLite
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache opens (or creates) the database at path and migrates it
func NewSQLiteCache(path string, logger *slog.Logger) (*SQLiteCache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for concurrent readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	c := &SQLiteCache{sqlCache: newSQLCache(db, sqliteDialect, logger, 10*time.Minute)}
	if err := c.Migrate(context.Background()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
