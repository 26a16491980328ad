package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NativeAddress is the sentinel address used for a chain's native asset.
const NativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// Provenance tags
const (
	SourceGeckoTerminal         = "geckoterminal"
	SourceOnchain               = "onchain"
	SourceDexScreener           = "dexscreener"
	SourceBinance               = "binance"
	SourceOnchainOnly           = "onchain_only"
	SourceDexScreenerEnhanced   = "dexscreener_enhanced"
	SourceGeckoTerminalEnhanced = "geckoterminal_enhanced"
	SourcePopularPrebuilt       = "popular_prebuilt"
	SourcePopularBinance        = "popular_binance_enhanced"
)

// Token is a canonical token record. Tokens are values: operations return
// modified copies and never mutate a token that has been handed out.
type Token struct {
	ChainID     int64               `json:"chainId"`
	Address     string              `json:"address"`
	Symbol      string              `json:"symbol"`
	Name        string              `json:"name"`
	Decimals    uint8               `json:"decimals"`
	LogoURI     string              `json:"logoUri,omitempty"`
	PriceUSD    decimal.NullDecimal `json:"priceUsd"`
	Change24h   decimal.NullDecimal `json:"change24h"`
	Volume24h   decimal.NullDecimal `json:"volume24h"`
	MarketCap   decimal.NullDecimal `json:"marketCap"`
	Verified    bool                `json:"verified"`
	Popular     bool                `json:"popular"`
	Native      bool                `json:"native,omitempty"`
	Source      string              `json:"source"`
	LastUpdated *time.Time          `json:"lastUpdated,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

// NewToken builds a token with a lower-cased address and upper-cased symbol.
func NewToken(chainID int64, address, symbol, name string, decimals uint8, source string) Token {
	return Token{
		ChainID:  chainID,
		Address:  strings.ToLower(strings.TrimSpace(address)),
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Name:     strings.TrimSpace(name),
		Decimals: decimals,
		Source:   source,
	}
}

// Key is the deduplication key (chainId, lower-cased address).
func (t Token) Key() string {
	return fmt.Sprintf("%d:%s", t.ChainID, strings.ToLower(t.Address))
}

// HasMarketData reports whether any market field is set.
func (t Token) HasMarketData() bool {
	return t.PriceUSD.Valid || t.Volume24h.Valid || t.MarketCap.Valid || t.Change24h.Valid
}

// withoutMarketData returns a copy of t with every market field and the
// enrichment timestamp cleared.
func (t Token) withoutMarketData() Token {
	out := t.Clone()
	out.PriceUSD = decimal.NullDecimal{}
	out.Volume24h = decimal.NullDecimal{}
	out.MarketCap = decimal.NullDecimal{}
	out.Change24h = decimal.NullDecimal{}
	out.LastUpdated = nil
	return out
}

// Clone returns a copy that shares no mutable state with t.
func (t Token) Clone() Token {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	if t.LastUpdated != nil {
		ts := *t.LastUpdated
		t.LastUpdated = &ts
	}
	return t
}

// MarketData is the market snapshot a provider attaches to a token.
type MarketData struct {
	PriceUSD  decimal.NullDecimal
	Volume24h decimal.NullDecimal
	MarketCap decimal.NullDecimal
	Change24h decimal.NullDecimal
	LogoURI   string
}

// ParseMarketData parses provider strings. Price, volume and market cap are
// kept only when they are valid positive decimals; the 24h change only has to
// be a valid decimal.
func ParseMarketData(price, volume, marketCap, change string) MarketData {
	return MarketData{
		PriceUSD:  parsePositive(price),
		Volume24h: parsePositive(volume),
		MarketCap: parsePositive(marketCap),
		Change24h: parseDecimal(change),
	}
}

func parseDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parsePositive(s string) decimal.NullDecimal {
	d := parseDecimal(s)
	if !d.Valid || !d.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return d
}

// apply copies the valid market fields onto a copy of t.
func (m MarketData) apply(t Token, source string, now time.Time) Token {
	t = t.Clone()
	if m.PriceUSD.Valid {
		t.PriceUSD = m.PriceUSD
	}
	if m.Volume24h.Valid {
		t.Volume24h = m.Volume24h
	}
	if m.MarketCap.Valid {
		t.MarketCap = m.MarketCap
	}
	if m.Change24h.Valid {
		t.Change24h = m.Change24h
	}
	if t.LogoURI == "" && m.LogoURI != "" {
		t.LogoURI = m.LogoURI
	}
	t.Source = source
	t.LastUpdated = &now
	return t
}

// Ticker is 24h exchange ticker detail for one trading pair.
type Ticker struct {
	Symbol             string              `json:"symbol"`
	LastPrice          decimal.NullDecimal `json:"lastPrice"`
	PriceChange        decimal.NullDecimal `json:"priceChange"`
	PriceChangePercent decimal.NullDecimal `json:"priceChangePercent"`
	HighPrice          decimal.NullDecimal `json:"highPrice"`
	LowPrice           decimal.NullDecimal `json:"lowPrice"`
	Volume             decimal.NullDecimal `json:"volume"`
	QuoteVolume        decimal.NullDecimal `json:"quoteVolume"`
}

// ParseTicker builds a Ticker from the exchange's string fields.
func ParseTicker(symbol, last, change, changePct, high, low, volume, quoteVolume string) Ticker {
	return Ticker{
		Symbol:             symbol,
		LastPrice:          parseDecimal(last),
		PriceChange:        parseDecimal(change),
		PriceChangePercent: parseDecimal(changePct),
		HighPrice:          parseDecimal(high),
		LowPrice:           parseDecimal(low),
		Volume:             parseDecimal(volume),
		QuoteVolume:        parseDecimal(quoteVolume),
	}
}
