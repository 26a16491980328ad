// Package transport provides HTTP request/response types for the tokens domain.
package transport

import (
	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/tokens/domain"
)

// SearchResponse is the response for a token search.
type SearchResponse struct {
	Query     string         `json:"query"`
	InputType string         `json:"inputType"`
	Count     int            `json:"count"`
	Data      []domain.Token `json:"data"`
}

// ChainItem is an active chain in the chain list.
type ChainItem struct {
	ChainID              int64    `json:"chainId"`
	Name                 string   `json:"name"`
	Testnet              bool     `json:"testnet"`
	GeckoTerminalNetwork string   `json:"geckoterminalNetwork,omitempty"`
	DexScreenerChain     string   `json:"dexscreenerChain,omitempty"`
	PopularTokens        []string `json:"popularTokens"`
}

// ChainListResponse is the response for listing chains.
type ChainListResponse struct {
	Data []ChainItem `json:"data"`
}

// TickersResponse is the response for batched exchange tickers.
type TickersResponse struct {
	Data map[string]domain.Ticker `json:"data"`
}

func newChainItem(c chains.ChainConfig) ChainItem {
	symbols := make([]string, 0, len(c.PopularTokens))
	for _, pt := range c.PopularTokens {
		symbols = append(symbols, pt.Symbol)
	}
	return ChainItem{
		ChainID:              c.ID,
		Name:                 c.Name,
		Testnet:              c.Testnet,
		GeckoTerminalNetwork: c.GeckoTerminalNetwork,
		DexScreenerChain:     c.DexScreenerChain,
		PopularTokens:        symbols,
	}
}
