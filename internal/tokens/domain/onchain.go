package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pendergraft/tokenscope/internal/chains"
)

// OnchainResolver resolves tokens by calling contracts on every active chain.
type OnchainResolver struct {
	registry    *chains.Registry
	reader      chains.Reader
	environment string
	logger      *slog.Logger
}

// NewOnchainResolver creates a resolver over the active chains of environment.
func NewOnchainResolver(registry *chains.Registry, reader chains.Reader, environment string, logger *slog.Logger) *OnchainResolver {
	return &OnchainResolver{
		registry:    registry,
		reader:      reader,
		environment: environment,
		logger:      logger,
	}
}

// ByAddress probes every active chain for a contract at address. Chains that
// fail the quick check are skipped before the full metadata fetch.
func (r *OnchainResolver) ByAddress(ctx context.Context, address string) []Token {
	active := r.registry.Active(r.environment)
	tasks := make([]task[*Token], 0, len(active))

	for _, c := range active {
		chainID := c.ID
		tasks = append(tasks, task[*Token]{
			name: "onchain:address:" + strconv.FormatInt(chainID, 10),
			run: func(ctx context.Context) *Token {
				if !r.reader.QuickCheck(ctx, chainID, address) {
					return nil
				}
				t, err := r.Resolve(ctx, chainID, address)
				if err != nil {
					r.logger.Debug("metadata fetch failed",
						"chain_id", chainID,
						"address", address,
						"error", err,
					)
					return nil
				}
				return t
			},
		})
	}

	return collectTokens(fanOut(ctx, r.logger, tasks))
}

// BySymbol fetches metadata for the popular address of symbol on every
// active chain that lists one. Results are marked popular.
func (r *OnchainResolver) BySymbol(ctx context.Context, symbol string) []Token {
	var tasks []task[*Token]

	for _, c := range r.registry.Active(r.environment) {
		addr, ok := c.PopularAddress(symbol)
		if !ok {
			continue
		}
		chainID := c.ID
		tasks = append(tasks, task[*Token]{
			name: "onchain:symbol:" + strconv.FormatInt(chainID, 10),
			run: func(ctx context.Context) *Token {
				t, err := r.Resolve(ctx, chainID, addr)
				if err != nil {
					r.logger.Debug("popular token lookup failed",
						"chain_id", chainID,
						"symbol", symbol,
						"error", err,
					)
					return nil
				}
				t.Popular = true
				return t
			},
		})
	}

	return collectTokens(fanOut(ctx, r.logger, tasks))
}

// Resolve fetches contract metadata for address on one chain and overlays
// curated popular-token metadata when the address is known.
func (r *OnchainResolver) Resolve(ctx context.Context, chainID int64, address string) (*Token, error) {
	c, ok := r.registry.Get(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", chains.ErrChainNotFound, chainID)
	}

	meta, err := r.reader.TokenMetadata(ctx, chainID, address)
	if err != nil {
		return nil, err
	}

	t := NewToken(chainID, address, meta.Symbol, meta.Name, meta.Decimals, SourceOnchain)
	t.Verified = true
	if pt, ok := c.PopularMetadata(address); ok {
		t = overlayPopular(t, pt)
	}
	return &t, nil
}

func overlayPopular(t Token, pt chains.PopularToken) Token {
	t.Popular = true
	t.Native = pt.Native
	if pt.LogoURI != "" {
		t.LogoURI = pt.LogoURI
	}
	if len(pt.Tags) > 0 {
		t.Tags = append([]string(nil), pt.Tags...)
	}
	return t
}

// prebuiltToken builds a token from curated metadata alone.
func prebuiltToken(chainID int64, pt chains.PopularToken) Token {
	t := NewToken(chainID, pt.Address, pt.Symbol, pt.Name, pt.Decimals, SourcePopularPrebuilt)
	t.Verified = true
	return overlayPopular(t, pt)
}

func collectTokens(results []*Token) []Token {
	out := make([]Token, 0, len(results))
	for _, t := range results {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out
}
