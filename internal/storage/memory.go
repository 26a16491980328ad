package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a bounded in-process LRU with per-entry expiry.
type MemoryCache struct {
	entries *lru.Cache[string, memoryEntry]
	closed  atomic.Bool
	now     func() time.Time
}

// NewMemoryCache creates a memory cache holding at most maxEntries keys.
func NewMemoryCache(maxEntries int) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	return &MemoryCache{entries: entries, now: time.Now}, nil
}

// Get returns the value for key
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores value under key for ttl
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	c.entries.Add(key, memoryEntry{value: v, expiresAt: c.now().Add(ttl)})
	return nil
}

// Delete removes key
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

// Ping reports whether the cache is usable
func (c *MemoryCache) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close drops all entries
func (c *MemoryCache) Close() error {
	c.closed.Store(true)
	c.entries.Purge()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
