package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/tokens/domain"
)

type binancePrice struct {
	Symbol string     `json:"symbol"`
	Price  flexString `json:"price"`
}

type binanceTicker struct {
	Symbol             string     `json:"symbol"`
	LastPrice          flexString `json:"lastPrice"`
	PriceChange        flexString `json:"priceChange"`
	PriceChangePercent flexString `json:"priceChangePercent"`
	HighPrice          flexString `json:"highPrice"`
	LowPrice           flexString `json:"lowPrice"`
	Volume             flexString `json:"volume"`
	QuoteVolume        flexString `json:"quoteVolume"`
}

// quote assets stripped from trading pair symbols, longest first
var binanceQuotes = []string{"USDT", "BNB"}

// Binance matches exchange listings against the popular table of the ticker
// chain and supplies spot prices.
type Binance struct {
	client      *Client
	registry    *chains.Registry
	environment string
	logger      *slog.Logger
}

var (
	_ domain.Searcher     = (*Binance)(nil)
	_ domain.TickerSource = (*Binance)(nil)
)

// NewBinance creates a Binance provider.
func NewBinance(client *Client, registry *chains.Registry, environment string, logger *slog.Logger) *Binance {
	return &Binance{
		client:      client,
		registry:    registry,
		environment: environment,
		logger:      logger,
	}
}

// Name returns the provenance tag of search results.
func (b *Binance) Name() string {
	return domain.SourceBinance
}

// Search lists all spot prices and keeps the listings whose base asset
// contains query and has a popular address on the ticker chain.
func (b *Binance) Search(ctx context.Context, query string) []domain.Token {
	chainID := b.registry.TickerChainID()
	chain, ok := b.registry.Get(chainID)
	if !ok || !b.registry.IsActive(chainID, b.environment) {
		return nil
	}

	var prices []binancePrice
	if err := b.client.GetJSON(ctx, "/ticker/price", nil, &prices); err != nil {
		logFailure(b.logger, BinanceName, "ticker_price", query, err)
		return nil
	}

	q := strings.ToUpper(strings.TrimSpace(query))
	seen := make(map[string]bool)
	var tokens []domain.Token

	for _, p := range prices {
		base, ok := baseAsset(p.Symbol)
		if !ok || seen[base] || !strings.Contains(base, q) {
			continue
		}
		addr, ok := chain.PopularAddress(base)
		if !ok {
			continue
		}
		seen[base] = true

		name, decimals := base, uint8(18)
		if pt, ok := chain.PopularMetadata(addr); ok {
			name, decimals = pt.Name, pt.Decimals
		}
		t := domain.NewToken(chainID, addr, base, name, decimals, domain.SourceBinance)
		t.Verified = true
		t.Popular = true
		tokens = append(tokens, t)
	}

	b.logger.Debug("search complete", "provider", BinanceName, "query", query, "tokens", len(tokens))
	return tokens
}

func baseAsset(symbol string) (string, bool) {
	for _, quote := range binanceQuotes {
		if base, ok := strings.CutSuffix(symbol, quote); ok && base != "" {
			return base, true
		}
	}
	return "", false
}

// Price returns the last spot price of a trading pair such as ETHUSDT.
func (b *Binance) Price(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	var p binancePrice
	if err := b.client.GetJSON(ctx, "/ticker/price", url.Values{"symbol": {symbol}}, &p); err != nil {
		logFailure(b.logger, BinanceName, "ticker_price", symbol, err)
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(p.Price.String())
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

// Tickers24h returns 24h ticker detail for symbols in one batched request.
func (b *Binance) Tickers24h(ctx context.Context, symbols []string) (map[string]domain.Ticker, error) {
	out := make(map[string]domain.Ticker, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	encoded, err := json.Marshal(symbols)
	if err != nil {
		return nil, fmt.Errorf("encoding symbols: %w", err)
	}

	var tickers []binanceTicker
	if err := b.client.GetJSON(ctx, "/ticker/24hr", url.Values{"symbols": {string(encoded)}}, &tickers); err != nil {
		return nil, err
	}

	for _, t := range tickers {
		out[t.Symbol] = domain.ParseTicker(
			t.Symbol,
			t.LastPrice.String(),
			t.PriceChange.String(),
			t.PriceChangePercent.String(),
			t.HighPrice.String(),
			t.LowPrice.String(),
			t.Volume.String(),
			t.QuoteVolume.String(),
		)
	}
	return out, nil
}
