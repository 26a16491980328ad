package domain

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/pendergraft/tokenscope/internal/observability/metrics"
)

// MarketDataFetcher looks up market data for one token. ok is false when the
// provider has nothing for it; provider errors are reported the same way.
type MarketDataFetcher interface {
	MarketData(ctx context.Context, chainID int64, address string) (MarketData, bool)
}

// EnrichmentStrategy pairs a fetcher with the provenance tag it stamps.
type EnrichmentStrategy struct {
	Source  string
	Fetcher MarketDataFetcher
}

// Enricher attaches market data by trying strategies in order and stopping
// at the first one that succeeds.
type Enricher struct {
	strategies []EnrichmentStrategy
	logger     *slog.Logger
	now        func() time.Time
}

// NewEnricher creates an enricher with strategies in priority order.
func NewEnricher(logger *slog.Logger, strategies ...EnrichmentStrategy) *Enricher {
	return &Enricher{
		strategies: strategies,
		logger:     logger,
		now:        time.Now,
	}
}

// Enrich returns a copy of t with market data from the first successful
// strategy. When none succeeds the copy is tagged onchain_only and carries
// no market data. Market data already on t is replaced, never merged.
func (e *Enricher) Enrich(ctx context.Context, t Token) Token {
	for _, s := range e.strategies {
		if ctx.Err() != nil {
			break
		}
		md, ok := s.Fetcher.MarketData(ctx, t.ChainID, t.Address)
		if !ok {
			continue
		}
		metrics.Enrichment(s.Source)
		return md.apply(t.withoutMarketData(), s.Source, e.now().UTC())
	}

	e.logger.Debug("no market data", "chain_id", t.ChainID, "address", t.Address)
	metrics.Enrichment(SourceOnchainOnly)
	out := t.withoutMarketData()
	out.Source = SourceOnchainOnly
	return out
}

// EnrichAll enriches tokens concurrently. Tokens whose enrichment does not
// finish before ctx ends are returned unchanged.
func (e *Enricher) EnrichAll(ctx context.Context, tokens []Token) []Token {
	tasks := make([]task[Token], len(tokens))
	for i, t := range tokens {
		tasks[i] = task[Token]{
			name:     "enrich:" + strconv.FormatInt(t.ChainID, 10),
			run:      func(ctx context.Context) Token { return e.Enrich(ctx, t) },
			fallback: t,
		}
	}
	return fanOut(ctx, e.logger, tasks)
}
