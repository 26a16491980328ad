// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/tokenscope/internal/config"
	"github.com/pendergraft/tokenscope/internal/middleware/logging"
	"github.com/pendergraft/tokenscope/internal/middleware/ratelimit"
	"github.com/pendergraft/tokenscope/internal/middleware/realip"
	"github.com/pendergraft/tokenscope/internal/middleware/security"
	"github.com/pendergraft/tokenscope/internal/observability/metrics"
	"github.com/pendergraft/tokenscope/internal/tokens/transport"
)

const maxBodyBytes = 64 << 10

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	router *chi.Mux

	tokensSvc transport.Service
	cache     Pinger
}

// New creates a new server
func New(cfg *config.Config, svc transport.Service, cache Pinger, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    chi.NewRouter(),
		tokensSvc: svc,
		cache:     cache,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	// realip first so the rate limiter and logger see the client address
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	s.router.Use(security.Filter(security.Config{
		FilterEnabled:  s.cfg.Security.FilterEnabled,
		MaxQueryLength: s.cfg.Security.MaxQueryLength,
	}))
	s.router.Use(security.MaxBodySize(maxBodyBytes))

	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))

	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	if metrics.Enabled() {
		s.router.Handle("/metrics", metrics.Handler())
	}

	tokensHandler := transport.NewHandler(s.tokensSvc)

	s.router.Route("/api/v1", func(r chi.Router) {
		if d := time.Duration(s.cfg.Server.RequestTimeout) * time.Second; d > 0 {
			r.Use(middleware.Timeout(d))
		}
		tokensHandler.RegisterRoutes(r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports not ready while the result cache is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "cache": "down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
