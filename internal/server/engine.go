package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/chains/evm"
	"github.com/pendergraft/tokenscope/internal/config"
	"github.com/pendergraft/tokenscope/internal/providers"
	"github.com/pendergraft/tokenscope/internal/storage"
	"github.com/pendergraft/tokenscope/internal/tokens/domain"
	"github.com/pendergraft/tokenscope/internal/tokens/transport"
)

// Engine is the assembled search engine with the resources it owns.
type Engine struct {
	Service  transport.Service
	Registry *chains.Registry
	Cache    storage.Cache

	reader *evm.Reader
}

// NewEngine builds the chain registry, contract reader, cache, providers and
// token service from configuration.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	registry, err := chains.Load(cfg.Engine.ChainsFile)
	if err != nil {
		return nil, fmt.Errorf("loading chain registry: %w", err)
	}
	registry = registry.WithRPCOverrides(os.Getenv)

	cache, err := storage.New(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	reader := evm.NewReader(registry, logger,
		evm.WithTimeouts(cfg.Engine.QuickCheckTimeout, cfg.Engine.MetadataTimeout),
	)

	return &Engine{
		Service:  newService(cfg, registry, cache, reader, logger),
		Registry: registry,
		Cache:    cache,
		reader:   reader,
	}, nil
}

func newService(cfg *config.Config, registry *chains.Registry, cache storage.Cache, reader chains.Reader, logger *slog.Logger) transport.Service {
	env := cfg.Engine.Environment
	client := func(name string, pc config.ProviderConfig) *providers.Client {
		return providers.NewClient(providers.ClientConfig{
			Name:             name,
			BaseURL:          pc.BaseURL,
			RequestsPerMin:   pc.RequestsPerMin,
			Timeout:          cfg.Providers.Timeout,
			FailureThreshold: cfg.Providers.FailureThreshold,
			BreakerOpen:      cfg.Providers.BreakerOpen,
		})
	}

	gecko := providers.NewGeckoTerminal(client(providers.GeckoTerminalName, cfg.Providers.GeckoTerminal), registry, env, logger)
	dex := providers.NewDexScreener(client(providers.DexScreenerName, cfg.Providers.DexScreener), registry, env, logger)
	binance := providers.NewBinance(client(providers.BinanceName, cfg.Providers.Binance), registry, env, logger)

	enricher := domain.NewEnricher(logger,
		domain.EnrichmentStrategy{Source: domain.SourceDexScreenerEnhanced, Fetcher: dex},
		domain.EnrichmentStrategy{Source: domain.SourceGeckoTerminalEnhanced, Fetcher: gecko},
	)

	svc := domain.NewService(domain.Params{
		Registry:  registry,
		Cache:     cache,
		Resolver:  domain.NewOnchainResolver(registry, reader, env, logger),
		Searchers: []domain.Searcher{gecko, dex, binance},
		Enricher:  enricher,
		Tickers:   binance,
		Logger:    logger,
		Options: domain.Options{
			Environment:          env,
			CacheTTL:             cfg.Cache.CacheTTL(),
			SearchTimeout:        cfg.Engine.SearchTimeout,
			EnrichAddressResults: cfg.Engine.EnrichAddressResults,
			PopularFallback:      cfg.Engine.PopularFallback,
		},
	})
	return domain.LoggingMiddleware(logger)(svc)
}

// Close releases RPC clients and the cache connection.
func (e *Engine) Close() error {
	e.reader.Close()
	return e.Cache.Close()
}
