package providers

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/tokens/domain"
)

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type dexPair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	PairAddress string     `json:"pairAddress"`
	BaseToken   dexToken   `json:"baseToken"`
	QuoteToken  dexToken   `json:"quoteToken"`
	PriceUSD    flexString `json:"priceUsd"`
	Volume      struct {
		H24 flexString `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD flexString `json:"usd"`
	} `json:"liquidity"`
	FDV         flexString `json:"fdv"`
	MarketCap   flexString `json:"marketCap"`
	PriceChange struct {
		H24 flexString `json:"h24"`
	} `json:"priceChange"`
}

type dexPairsResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// DexScreener searches trading pairs and reads per-token pair data.
type DexScreener struct {
	client      *Client
	registry    *chains.Registry
	environment string
	logger      *slog.Logger
}

var (
	_ domain.Searcher          = (*DexScreener)(nil)
	_ domain.MarketDataFetcher = (*DexScreener)(nil)
)

// NewDexScreener creates a DexScreener provider.
func NewDexScreener(client *Client, registry *chains.Registry, environment string, logger *slog.Logger) *DexScreener {
	return &DexScreener{
		client:      client,
		registry:    registry,
		environment: environment,
		logger:      logger,
	}
}

// Name returns the provenance tag of search results.
func (d *DexScreener) Name() string {
	return domain.SourceDexScreener
}

// Search returns the base and non-stablecoin quote legs of pairs matching
// query on active chains.
func (d *DexScreener) Search(ctx context.Context, query string) []domain.Token {
	var resp dexPairsResponse
	if err := d.client.GetJSON(ctx, "/search/", url.Values{"q": {query}}, &resp); err != nil {
		logFailure(d.logger, DexScreenerName, "search", query, err)
		return nil
	}

	seen := make(map[string]bool)
	var tokens []domain.Token
	add := func(chainID int64, ref dexToken) {
		if ref.Address == "" {
			return
		}
		t := domain.NewToken(chainID, ref.Address, ref.Symbol, ref.Name, 18, domain.SourceDexScreener)
		if seen[t.Key()] {
			return
		}
		seen[t.Key()] = true
		t.Verified = true
		tokens = append(tokens, t)
	}

	for _, pair := range resp.Pairs {
		chainID, ok := d.registry.ChainForDexScreener(pair.ChainID)
		if !ok || !d.registry.IsActive(chainID, d.environment) {
			continue
		}
		add(chainID, pair.BaseToken)
		if !d.registry.IsStablecoin(pair.QuoteToken.Symbol) {
			add(chainID, pair.QuoteToken)
		}
	}

	d.logger.Debug("search complete", "provider", DexScreenerName, "query", query, "tokens", len(tokens))
	return tokens
}

// MarketData reads every pair for address across chains and takes market
// data from the deepest pair whose base token is address.
func (d *DexScreener) MarketData(ctx context.Context, chainID int64, address string) (domain.MarketData, bool) {
	var resp dexPairsResponse
	if err := d.client.GetJSON(ctx, "/tokens/"+url.PathEscape(strings.ToLower(address)), nil, &resp); err != nil {
		logFailure(d.logger, DexScreenerName, "tokens", address, err)
		return domain.MarketData{}, false
	}

	best := bestPair(resp.Pairs, address)
	if best == nil {
		d.logger.Debug("no matching pair", "provider", DexScreenerName, "address", address, "pairs", len(resp.Pairs))
		return domain.MarketData{}, false
	}

	return domain.ParseMarketData(
		best.PriceUSD.String(),
		best.Volume.H24.String(),
		best.MarketCap.String(),
		best.PriceChange.H24.String(),
	), true
}

// bestPair picks the pair with the largest USD liquidity among pairs whose
// base token is address. Ties keep the earlier pair. Pairs without a
// liquidity figure are skipped.
func bestPair(pairs []dexPair, address string) *dexPair {
	var best *dexPair
	maxLiquidity := decimal.Zero

	for i := range pairs {
		p := &pairs[i]
		if !strings.EqualFold(p.BaseToken.Address, address) || p.Liquidity.USD == "" {
			continue
		}
		liquidity, err := decimal.NewFromString(p.Liquidity.USD.String())
		if err != nil {
			continue
		}
		if best == nil || liquidity.GreaterThan(maxLiquidity) {
			best = p
			maxLiquidity = liquidity
		}
	}
	return best
}
