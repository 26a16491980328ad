package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// dialect holds the backend-specific statements of the SQL caches.
type dialect struct {
	name   string
	schema string
	get    string
	upsert string
	delete string
	purge  string
}

// sqlCache implements Cache on a database/sql handle. Expired rows are
// ignored on read and removed by a background purge loop.
type sqlCache struct {
	db      *sql.DB
	d       dialect
	logger  *slog.Logger
	now     func() time.Time
	stopCh  chan struct{}
	stopped sync.Once
}

func newSQLCache(db *sql.DB, d dialect, logger *slog.Logger, purgeEvery time.Duration) *sqlCache {
	c := &sqlCache{
		db:     db,
		d:      d,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	if purgeEvery > 0 {
		go c.purgeLoop(purgeEvery)
	}
	return c
}

// Migrate creates the cache table
func (c *sqlCache) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, c.d.schema); err != nil {
		return fmt.Errorf("migrating %s cache: %w", c.d.name, err)
	}
	return nil
}

// Get returns the value for key
func (c *sqlCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx, c.d.get, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%s get: %w", c.d.name, err)
	}
	if c.now().UnixMilli() >= expiresAt {
		return nil, ErrCacheMiss
	}
	return value, nil
}

// Set stores value under key for ttl
func (c *sqlCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := c.now().Add(ttl).UnixMilli()
	if _, err := c.db.ExecContext(ctx, c.d.upsert, key, value, expiresAt); err != nil {
		return fmt.Errorf("%s set: %w", c.d.name, err)
	}
	return nil
}

// Delete removes key
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, c.d.delete, key); err != nil {
		return fmt.Errorf("%s delete: %w", c.d.name, err)
	}
	return nil
}

// Ping checks the connection
func (c *sqlCache) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close stops the purge loop and closes the database
func (c *sqlCache) Close() error {
	c.stopped.Do(func() { close(c.stopCh) })
	return c.db.Close()
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (c *sqlCache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, c.d.purge, c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%s purge: %w", c.d.name, err)
	}
	return res.RowsAffected()
}

func (c *sqlCache) purgeLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := c.PurgeExpired(ctx)
			cancel()
			if err != nil {
				c.logger.Warn("cache purge failed", "backend", c.d.name, "error", err)
				continue
			}
			if n > 0 {
				c.logger.Debug("purged expired cache rows", "backend", c.d.name, "rows", n)
			}
		case <-c.stopCh:
			return
		}
	}
}
