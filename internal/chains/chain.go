// Package chains provides the chain registry and the contract reader interface
// used to resolve ERC20-style tokens across EVM networks.
package chains

import (
	"context"
	"errors"
	"strings"
)

// Common chain errors
var (
	ErrChainNotFound = errors.New("chain not found")
	ErrNoRPC         = errors.New("chain has no rpc endpoint")
)

// ContractMetadata is the raw (symbol, name, decimals) tuple decoded from a token contract.
type ContractMetadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Reader performs read-only contract calls against a chain's RPC endpoint.
type Reader interface {
	// QuickCheck reports whether a token contract answers name() at address.
	QuickCheck(ctx context.Context, chainID int64, address string) bool
	// TokenMetadata fetches name, symbol and decimals. Decimals falls back to 18
	// when its call fails; name or symbol failures return an error.
	TokenMetadata(ctx context.Context, chainID int64, address string) (*ContractMetadata, error)
}

// PopularToken is curated metadata for a well-known token on one chain.
type PopularToken struct {
	Symbol        string   `yaml:"symbol" toml:"symbol" json:"symbol"`
	Address       string   `yaml:"address" toml:"address" json:"address"`
	Name          string   `yaml:"name" toml:"name" json:"name"`
	Decimals      uint8    `yaml:"decimals" toml:"decimals" json:"decimals"`
	LogoURI       string   `yaml:"logo_uri" toml:"logo_uri" json:"logoUri,omitempty"`
	Tags          []string `yaml:"tags" toml:"tags" json:"tags,omitempty"`
	BinanceSymbol string   `yaml:"binance_symbol" toml:"binance_symbol" json:"binanceSymbol,omitempty"`
	Native        bool     `yaml:"native" toml:"native" json:"native,omitempty"`
}

// ChainConfig describes one EVM network.
type ChainConfig struct {
	ID                   int64          `yaml:"id" toml:"id" json:"id"`
	Name                 string         `yaml:"name" toml:"name" json:"name"`
	RPCURL               string         `yaml:"rpc_url" toml:"rpc_url" json:"-"`
	Testnet              bool           `yaml:"testnet" toml:"testnet" json:"testnet"`
	Active               bool           `yaml:"active" toml:"active" json:"active"`
	GeckoTerminalNetwork string         `yaml:"geckoterminal_network" toml:"geckoterminal_network" json:"geckoterminalNetwork,omitempty"`
	GeckoTerminalAliases []string       `yaml:"geckoterminal_aliases" toml:"geckoterminal_aliases" json:"-"`
	DexScreenerChain     string         `yaml:"dexscreener_chain" toml:"dexscreener_chain" json:"dexscreenerChain,omitempty"`
	PopularTokens        []PopularToken `yaml:"popular_tokens" toml:"popular_tokens" json:"popularTokens,omitempty"`

	bySymbol  map[string]string
	byAddress map[string]PopularToken
}

// index builds the symbol and address lookups. Addresses are stored lower-cased.
func (c *ChainConfig) index() {
	c.bySymbol = make(map[string]string, len(c.PopularTokens))
	c.byAddress = make(map[string]PopularToken, len(c.PopularTokens))
	for i := range c.PopularTokens {
		pt := &c.PopularTokens[i]
		pt.Address = strings.ToLower(pt.Address)
		pt.Symbol = strings.ToUpper(pt.Symbol)
		c.bySymbol[pt.Symbol] = pt.Address
		// first entry wins for addresses listed under several symbols
		if _, ok := c.byAddress[pt.Address]; !ok {
			c.byAddress[pt.Address] = *pt
		}
	}
}

// PopularAddress returns the known address for symbol on this chain.
func (c ChainConfig) PopularAddress(symbol string) (string, bool) {
	addr, ok := c.bySymbol[strings.ToUpper(symbol)]
	return addr, ok
}

// PopularMetadata returns curated metadata for address on this chain.
func (c ChainConfig) PopularMetadata(address string) (PopularToken, bool) {
	pt, ok := c.byAddress[strings.ToLower(address)]
	return pt, ok
}
