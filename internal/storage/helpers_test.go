package storage

import "github.com/pendergraft/tokenscope/internal/config"

func configWithBackend(backend string) config.CacheConfig {
	return config.CacheConfig{Backend: backend, MaxEntries: 16, TTLSeconds: 300}
}
