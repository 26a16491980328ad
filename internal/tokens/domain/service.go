package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/observability/metrics"
	"github.com/pendergraft/tokenscope/internal/storage"
	"github.com/pendergraft/tokenscope/internal/validation"
)

// Cache memoizes serialized search results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Searcher is an external provider that resolves a symbol query to tokens.
// Implementations never fail; a provider with nothing to say returns nil.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) []Token
}

// TickerSource supplies exchange prices.
type TickerSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, bool)
	Tickers24h(ctx context.Context, symbols []string) (map[string]Ticker, error)
}

// Options tunes the search engine.
type Options struct {
	Environment          string
	CacheTTL             time.Duration
	SearchTimeout        time.Duration
	EnrichAddressResults bool
	PopularFallback      bool
}

// Params holds the service's collaborators.
type Params struct {
	Registry  *chains.Registry
	Cache     Cache
	Resolver  *OnchainResolver
	Searchers []Searcher
	Enricher  *Enricher
	Tickers   TickerSource
	Logger    *slog.Logger
	Options   Options
}

type service struct {
	registry  *chains.Registry
	cache     Cache
	resolver  *OnchainResolver
	searchers []Searcher
	enricher  *Enricher
	tickers   TickerSource
	logger    *slog.Logger
	opts      Options
	flight    singleflight.Group
	now       func() time.Time
}

// NewService creates a new token service
func NewService(p Params) *service {
	opts := p.Options
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 10 * time.Second
	}
	if opts.Environment == "" {
		opts.Environment = "mainnet"
	}
	enricher := p.Enricher
	if enricher == nil {
		enricher = NewEnricher(p.Logger)
	}
	return &service{
		registry:  p.Registry,
		cache:     p.Cache,
		resolver:  p.Resolver,
		searchers: p.Searchers,
		enricher:  enricher,
		tickers:   p.Tickers,
		logger:    p.Logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Search resolves query to a deduplicated, ordered token list. Unclassifiable
// queries and queries nothing resolves return an empty list without error.
func (s *service) Search(ctx context.Context, query string) ([]Token, error) {
	start := time.Now()
	q := strings.TrimSpace(query)
	inputType := Classify(q)

	if inputType == InputUnknown {
		metrics.Search(string(inputType), "unsupported", time.Since(start), 0)
		return []Token{}, nil
	}

	key := CacheKey(inputType, q)
	cached, err := s.cached(ctx, key)
	if err != nil {
		metrics.Search(string(inputType), "error", time.Since(start), 0)
		return nil, err
	}
	if cached != nil {
		metrics.Search(string(inputType), "cache_hit", time.Since(start), len(cached))
		return cached, nil
	}

	ch := s.flight.DoChan(key, func() (any, error) {
		fctx, cancel := s.flightContext(ctx)
		defer cancel()

		tokens := s.resolve(fctx, inputType, q)
		if len(tokens) > 0 {
			s.store(ctx, key, tokens)
		}
		return tokens, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		// the flight may have delivered in the same instant
		select {
		case res = <-ch:
		default:
			metrics.Search(string(inputType), "error", time.Since(start), 0)
			return nil, ctx.Err()
		}
	}

	tokens := cloneTokens(res.Val.([]Token))
	outcome := "resolved"
	if len(tokens) == 0 {
		outcome = "empty"
	}
	metrics.Search(string(inputType), outcome, time.Since(start), len(tokens))
	return tokens, nil
}

// flightMargin is the time reserved between the shared search's deadline and
// the caller's, for merging and caching what completed.
const flightMargin = 50 * time.Millisecond

// flightContext detaches the shared search from the first caller's
// cancellation. Its deadline is the search timeout, or slightly earlier than
// the caller's deadline when that comes first, so partial results reach the
// caller before it gives up.
func (s *service) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline := time.Now().Add(s.opts.SearchTimeout)
	if d, ok := ctx.Deadline(); ok {
		margin := min(flightMargin, time.Until(d)/5)
		if d = d.Add(-margin); d.Before(deadline) {
			deadline = d
		}
	}
	return context.WithDeadline(context.WithoutCancel(ctx), deadline)
}

func (s *service) resolve(ctx context.Context, inputType InputType, q string) []Token {
	switch inputType {
	case InputAddress:
		return s.resolveAddress(ctx, q)
	case InputSymbol:
		return s.resolveSymbol(ctx, q)
	default:
		return []Token{}
	}
}

func (s *service) resolveAddress(ctx context.Context, address string) []Token {
	tokens := Reconcile(s.resolver.ByAddress(ctx, address))

	if len(tokens) == 0 {
		if s.opts.PopularFallback {
			return s.popularFallback(ctx, address)
		}
		return tokens
	}

	if s.opts.EnrichAddressResults {
		tokens = s.enricher.EnrichAll(ctx, tokens)
		SortTokens(tokens)
	}
	return tokens
}

func (s *service) resolveSymbol(ctx context.Context, symbol string) []Token {
	tasks := make([]task[[]Token], 0, len(s.searchers)+1)
	for _, searcher := range s.searchers {
		tasks = append(tasks, task[[]Token]{
			name: searcher.Name(),
			run: func(ctx context.Context) []Token {
				return searcher.Search(ctx, symbol)
			},
		})
	}
	tasks = append(tasks, task[[]Token]{
		name: SourceOnchain,
		run: func(ctx context.Context) []Token {
			return s.resolver.BySymbol(ctx, symbol)
		},
	})

	return Reconcile(fanOut(ctx, s.logger, tasks)...)
}

// popularFallback returns curated metadata for address on the active chains
// that list it, priced from the exchange ticker when one is configured.
func (s *service) popularFallback(ctx context.Context, address string) []Token {
	var tokens []Token
	for _, c := range s.registry.Active(s.opts.Environment) {
		pt, ok := c.PopularMetadata(address)
		if !ok {
			continue
		}
		tokens = append(tokens, s.prebuilt(ctx, c.ID, pt))
	}
	if len(tokens) == 0 {
		return []Token{}
	}
	SortTokens(tokens)
	return tokens
}

func (s *service) prebuilt(ctx context.Context, chainID int64, pt chains.PopularToken) Token {
	t := prebuiltToken(chainID, pt)
	if pt.BinanceSymbol == "" || s.tickers == nil {
		return t
	}

	price, ok := s.tickers.Price(ctx, strings.ToUpper(pt.BinanceSymbol)+"USDT")
	if !ok || !price.IsPositive() {
		return t
	}
	now := s.now().UTC()
	t.PriceUSD = decimal.NewNullDecimal(price)
	t.Source = SourcePopularBinance
	t.LastUpdated = &now
	metrics.Enrichment(SourcePopularBinance)
	return t
}

func (s *service) cached(ctx context.Context, key string) ([]Token, error) {
	data, err := s.cache.Get(ctx, key)
	if errors.Is(err, storage.ErrCacheMiss) {
		metrics.CacheOperation("get", "miss")
		return nil, nil
	}
	if err != nil {
		metrics.CacheOperation("get", "error")
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	var tokens []Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		// a corrupt entry is treated as a miss and overwritten
		s.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		metrics.CacheOperation("get", "corrupt")
		return nil, nil
	}
	metrics.CacheOperation("get", "hit")
	return tokens, nil
}

func (s *service) store(ctx context.Context, key string, tokens []Token) {
	data, err := json.Marshal(tokens)
	if err != nil {
		s.logger.Error("encoding search result", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, key, data, s.opts.CacheTTL); err != nil {
		metrics.CacheOperation("set", "error")
		s.logger.Warn("caching search result", "key", key, "error", err)
		return
	}
	metrics.CacheOperation("set", "ok")
}

// Enrich attaches market data to a caller-supplied token.
func (s *service) Enrich(ctx context.Context, t Token) (Token, error) {
	if !IsAddress(t.Address) {
		return Token{}, fmt.Errorf("%w: invalid address %q", ErrUnsupportedInput, t.Address)
	}
	if err := validation.ValidateChainID(t.ChainID); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}
	t.Address = strings.ToLower(t.Address)
	t.Symbol = strings.ToUpper(t.Symbol)
	return s.enricher.Enrich(ctx, t), nil
}

// TokenByAddress resolves and enriches one token on one chain.
func (s *service) TokenByAddress(ctx context.Context, chainID int64, address string) (*Token, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}
	c, ok := s.registry.Get(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrChainNotSupported, chainID)
	}

	t, err := s.resolver.Resolve(ctx, chainID, address)
	if err != nil {
		pt, known := c.PopularMetadata(address)
		if !known || !s.opts.PopularFallback {
			s.logger.Debug("token lookup failed", "chain_id", chainID, "address", address, "error", err)
			return nil, fmt.Errorf("%w: %s on chain %d", ErrNotFound, address, chainID)
		}
		prebuilt := s.prebuilt(ctx, chainID, pt)
		return &prebuilt, nil
	}

	enriched := s.enricher.Enrich(ctx, *t)
	return &enriched, nil
}

// Tickers returns exchange 24h ticker detail keyed by trading pair symbol.
func (s *service) Tickers(ctx context.Context, symbols []string) (map[string]Ticker, error) {
	if s.tickers == nil {
		return nil, ErrTickersDisabled
	}
	symbols = validation.NormalizeTickerSymbols(symbols)
	if err := validation.ValidateTickerSymbols(symbols); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSymbols, err)
	}

	tickers, err := s.tickers.Tickers24h(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return tickers, nil
}

// Chains lists the chains searched in the configured environment.
func (s *service) Chains(ctx context.Context) []chains.ChainConfig {
	return s.registry.Active(s.opts.Environment)
}

func cloneTokens(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = t.Clone()
	}
	return out
}
