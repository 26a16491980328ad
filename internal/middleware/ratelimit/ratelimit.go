// Package ratelimit provides per-client token bucket rate limiting.
package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/pendergraft/tokenscope/internal/middleware/realip"
)

// Config holds the configuration for rate limiting
type Config struct {
	Enabled bool
	// RequestsPerMin is the sustained rate allowed per client
	RequestsPerMin int
	BurstSize      int
	// CleanupMinutes is how long an idle client's bucket is kept
	CleanupMinutes int
	// MaxClients bounds the number of tracked clients; 0 means 10000
	MaxClients int
}

// RateLimiter keeps one token bucket per client address. Idle buckets expire
// and the least recently seen client is evicted when the table is full.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	limit    string
}

// New creates a new RateLimiter with the given configuration
func New(cfg Config) *RateLimiter {
	idle := time.Duration(cfg.CleanupMinutes) * time.Minute
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	size := cfg.MaxClients
	if size <= 0 {
		size = 10000
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, idle),
		rate:     rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:    burst,
		limit:    strconv.Itoa(cfg.RequestsPerMin),
	}
}

func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters.Get(client); ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.Add(client, l)
	return l
}

// Tracked returns the number of clients with a live bucket.
func (rl *RateLimiter) Tracked() int {
	return rl.limiters.Len()
}

// exemptPaths are probes and scrapes that are never limited
var exemptPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// Middleware returns an HTTP middleware that rate limits requests per client
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			res := rl.limiter(realip.ClientIP(r)).Reserve()
			w.Header().Set("X-RateLimit-Limit", rl.limit)

			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				retry := 60
				if delay != rate.InfDuration {
					retry = max(1, int(math.Ceil(delay.Seconds())))
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":    "RATE_LIMIT_EXCEEDED",
						"message": "Too many requests. Please try again later.",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Middleware returns a rate limiting middleware, or a pass-through when
// rate limiting is disabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return New(cfg).Middleware()
}
