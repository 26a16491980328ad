package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/pendergraft/tokenscope/internal/chains"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	Search(ctx context.Context, query string) ([]Token, error)
	Enrich(ctx context.Context, t Token) (Token, error)
	TokenByAddress(ctx context.Context, chainID int64, address string) (*Token, error)
	Tickers(ctx context.Context, symbols []string) (map[string]Ticker, error)
	Chains(ctx context.Context) []chains.ChainConfig
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(loggingService) *loggingMiddleware {
	return func(next loggingService) *loggingMiddleware {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   loggingService
	logger *slog.Logger
}

func (m *loggingMiddleware) Search(ctx context.Context, query string) ([]Token, error) {
	start := time.Now()
	tokens, err := m.next.Search(ctx, query)
	m.logger.Info("Search",
		"query", query,
		"input_type", Classify(query),
		"results", len(tokens),
		"duration", time.Since(start),
		"error", err,
	)
	return tokens, err
}

func (m *loggingMiddleware) Enrich(ctx context.Context, t Token) (Token, error) {
	start := time.Now()
	out, err := m.next.Enrich(ctx, t)
	m.logger.Debug("Enrich",
		"chain_id", t.ChainID,
		"address", t.Address,
		"source", out.Source,
		"duration", time.Since(start),
		"error", err,
	)
	return out, err
}

func (m *loggingMiddleware) TokenByAddress(ctx context.Context, chainID int64, address string) (*Token, error) {
	start := time.Now()
	t, err := m.next.TokenByAddress(ctx, chainID, address)
	m.logger.Debug("TokenByAddress",
		"chain_id", chainID,
		"address", address,
		"duration", time.Since(start),
		"error", err,
	)
	return t, err
}

func (m *loggingMiddleware) Tickers(ctx context.Context, symbols []string) (map[string]Ticker, error) {
	start := time.Now()
	tickers, err := m.next.Tickers(ctx, symbols)
	m.logger.Debug("Tickers",
		"symbols", len(symbols),
		"results", len(tickers),
		"duration", time.Since(start),
		"error", err,
	)
	return tickers, err
}

func (m *loggingMiddleware) Chains(ctx context.Context) []chains.ChainConfig {
	return m.next.Chains(ctx)
}
