package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenscope/internal/chains"
)

const (
	usdcAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	wethAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	wbnbAddress = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) *chains.Registry {
	t.Helper()
	r, err := chains.NewRegistry(chains.File{
		TickerChainID: 56,
		Stablecoins:   []string{"USDT", "USDC"},
		Chains: []chains.ChainConfig{
			{
				ID: 1, Name: "Ethereum", Active: true,
				GeckoTerminalNetwork: "eth", DexScreenerChain: "ethereum",
				PopularTokens: []chains.PopularToken{
					{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Name: "USD Coin", Decimals: 6, Tags: []string{"stablecoin"}},
					{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Name: "Wrapped Ether", Decimals: 18, BinanceSymbol: "ETH", LogoURI: "https://logos/weth.png"},
				},
			},
			{
				ID: 56, Name: "BNB Smart Chain", Active: true,
				GeckoTerminalNetwork: "bsc", DexScreenerChain: "bsc",
				PopularTokens: []chains.PopularToken{
					{Symbol: "WBNB", Address: wbnbAddress, Name: "Wrapped BNB", Decimals: 18, BinanceSymbol: "BNB"},
				},
			},
			{ID: 137, Name: "Polygon", Active: false},
			{ID: 97, Name: "BSC Testnet", Active: true, Testnet: true},
		},
	})
	require.NoError(t, err)
	return r
}

// mockReader answers contract calls from a fixed table keyed by chain and address.
type mockReader struct {
	mu        sync.Mutex
	contracts map[string]chains.ContractMetadata
	panicOn   map[int64]bool
	delay     time.Duration

	quickCalls    atomic.Int32
	metadataCalls atomic.Int32
}

func newMockReader() *mockReader {
	return &mockReader{
		contracts: make(map[string]chains.ContractMetadata),
		panicOn:   make(map[int64]bool),
	}
}

func (m *mockReader) add(chainID int64, address string, meta chains.ContractMetadata) *mockReader {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))] = meta
	return m
}

func (m *mockReader) lookup(chainID int64, address string) (chains.ContractMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.contracts[fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))]
	return meta, ok
}

func (m *mockReader) wait(ctx context.Context) bool {
	if m.delay == 0 {
		return true
	}
	select {
	case <-time.After(m.delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *mockReader) QuickCheck(ctx context.Context, chainID int64, address string) bool {
	m.quickCalls.Add(1)
	if m.panicOn[chainID] {
		panic("rpc client blew up")
	}
	if !m.wait(ctx) {
		return false
	}
	_, ok := m.lookup(chainID, address)
	return ok
}

func (m *mockReader) TokenMetadata(ctx context.Context, chainID int64, address string) (*chains.ContractMetadata, error) {
	m.metadataCalls.Add(1)
	if m.panicOn[chainID] {
		panic("rpc client blew up")
	}
	if !m.wait(ctx) {
		return nil, ctx.Err()
	}
	meta, ok := m.lookup(chainID, address)
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return &meta, nil
}

// mockSearcher returns fixed tokens, optionally blocking until ctx ends.
type mockSearcher struct {
	name   string
	tokens []Token
	block  bool
	calls  atomic.Int32
}

func (m *mockSearcher) Name() string { return m.name }

func (m *mockSearcher) Search(ctx context.Context, query string) []Token {
	m.calls.Add(1)
	if m.block {
		<-ctx.Done()
		return nil
	}
	return m.tokens
}

// mockFetcher returns fixed market data.
type mockFetcher struct {
	data  MarketData
	ok    bool
	calls atomic.Int32
}

func (m *mockFetcher) MarketData(ctx context.Context, chainID int64, address string) (MarketData, bool) {
	m.calls.Add(1)
	return m.data, m.ok
}

// mockTickers is a fixed exchange price table.
type mockTickers struct {
	prices  map[string]decimal.Decimal
	tickers map[string]Ticker
	err     error
}

func (m *mockTickers) Price(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	p, ok := m.prices[symbol]
	return p, ok
}

func (m *mockTickers) Tickers24h(ctx context.Context, symbols []string) (map[string]Ticker, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]Ticker)
	for _, s := range symbols {
		if t, ok := m.tickers[s]; ok {
			out[s] = t
		}
	}
	return out, nil
}

// failingCache simulates an unreachable cache backend.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func price(s string) MarketData {
	return ParseMarketData(s, "", "", "")
}
