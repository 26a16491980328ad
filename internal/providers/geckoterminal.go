package providers

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/tokens/domain"
)

type geckoTokenRef struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

type geckoPoolsResponse struct {
	Data []struct {
		Attributes struct {
			BaseToken  geckoTokenRef `json:"base_token"`
			QuoteToken geckoTokenRef `json:"quote_token"`
		} `json:"attributes"`
		Relationships struct {
			Network struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"network"`
		} `json:"relationships"`
	} `json:"data"`
}

type geckoTokenResponse struct {
	Data struct {
		Attributes struct {
			Name         string     `json:"name"`
			Symbol       string     `json:"symbol"`
			Decimals     int        `json:"decimals"`
			ImageURL     string     `json:"image_url"`
			PriceUSD     flexString `json:"price_usd"`
			FdvUSD       flexString `json:"fdv_usd"`
			MarketCapUSD flexString `json:"market_cap_usd"`
			VolumeUSD    struct {
				H24 flexString `json:"h24"`
			} `json:"volume_usd"`
		} `json:"attributes"`
	} `json:"data"`
}

// GeckoTerminal searches pools and reads single-token market data.
type GeckoTerminal struct {
	client      *Client
	registry    *chains.Registry
	environment string
	logger      *slog.Logger
}

var (
	_ domain.Searcher          = (*GeckoTerminal)(nil)
	_ domain.MarketDataFetcher = (*GeckoTerminal)(nil)
)

// NewGeckoTerminal creates a GeckoTerminal provider.
func NewGeckoTerminal(client *Client, registry *chains.Registry, environment string, logger *slog.Logger) *GeckoTerminal {
	return &GeckoTerminal{
		client:      client,
		registry:    registry,
		environment: environment,
		logger:      logger,
	}
}

// Name returns the provenance tag of search results.
func (g *GeckoTerminal) Name() string {
	return domain.SourceGeckoTerminal
}

// Search returns the base and non-stablecoin quote legs of pools matching
// query on active chains.
func (g *GeckoTerminal) Search(ctx context.Context, query string) []domain.Token {
	var resp geckoPoolsResponse
	params := url.Values{"query": {query}, "page": {"1"}}
	if err := g.client.GetJSON(ctx, "/search/pools", params, &resp); err != nil {
		logFailure(g.logger, GeckoTerminalName, "search", query, err)
		return nil
	}

	seen := make(map[string]bool)
	var tokens []domain.Token
	add := func(chainID int64, ref geckoTokenRef) {
		if ref.Address == "" {
			return
		}
		t := domain.NewToken(chainID, ref.Address, ref.Symbol, ref.Name, 18, domain.SourceGeckoTerminal)
		if seen[t.Key()] {
			return
		}
		seen[t.Key()] = true
		t.Verified = true
		tokens = append(tokens, t)
	}

	for _, pool := range resp.Data {
		chainID, ok := g.registry.ChainForGeckoTerminal(pool.Relationships.Network.Data.ID)
		if !ok || !g.registry.IsActive(chainID, g.environment) {
			continue
		}
		add(chainID, pool.Attributes.BaseToken)
		if !g.registry.IsStablecoin(pool.Attributes.QuoteToken.Symbol) {
			add(chainID, pool.Attributes.QuoteToken)
		}
	}

	g.logger.Debug("search complete", "provider", GeckoTerminalName, "query", query, "tokens", len(tokens))
	return tokens
}

// MarketData reads token info on the chain's network. Market cap falls back
// to fully diluted value when missing.
func (g *GeckoTerminal) MarketData(ctx context.Context, chainID int64, address string) (domain.MarketData, bool) {
	c, ok := g.registry.Get(chainID)
	if !ok || c.GeckoTerminalNetwork == "" {
		return domain.MarketData{}, false
	}

	var resp geckoTokenResponse
	path := "/networks/" + url.PathEscape(c.GeckoTerminalNetwork) + "/tokens/" + url.PathEscape(strings.ToLower(address))
	if err := g.client.GetJSON(ctx, path, nil, &resp); err != nil {
		logFailure(g.logger, GeckoTerminalName, "token", address, err)
		return domain.MarketData{}, false
	}

	attrs := resp.Data.Attributes
	if attrs.Name == "" {
		return domain.MarketData{}, false
	}

	marketCap := attrs.MarketCapUSD.String()
	if marketCap == "" || marketCap == "null" {
		marketCap = attrs.FdvUSD.String()
	}

	md := domain.ParseMarketData(attrs.PriceUSD.String(), attrs.VolumeUSD.H24.String(), marketCap, "")
	md.LogoURI = attrs.ImageURL
	return md, true
}
