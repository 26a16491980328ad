package chains

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultRegistry(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	eth, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Ethereum", eth.Name)

	addr, ok := eth.PopularAddress("weth")
	require.True(t, ok)
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", addr)

	meta, ok := eth.PopularMetadata("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.True(t, ok)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, uint8(6), meta.Decimals)

	assert.Equal(t, int64(56), r.TickerChainID())
}

func TestRegistry_Active(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	var mainnet []int64
	for _, c := range r.Active("mainnet") {
		mainnet = append(mainnet, c.ID)
	}
	assert.Equal(t, []int64{1, 10, 56, 137, 8453, 42161}, mainnet)

	var testnet []int64
	for _, c := range r.Active("testnet") {
		testnet = append(testnet, c.ID)
	}
	assert.Equal(t, []int64{97, 84532}, testnet)
}

func TestRegistry_NetworkSlugs(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		slug string
		want int64
	}{
		{"eth", 1},
		{"bsc", 56},
		{"base", 8453},
		{"base-sepolia", 84532},
		{"base_sepolia", 84532},
		{"bsc-testnet", 97},
		{"polygon_pos", 137},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			id, ok := r.ChainForGeckoTerminal(tt.slug)
			require.True(t, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	_, ok := r.ChainForGeckoTerminal("solana")
	assert.False(t, ok)

	id, ok := r.ChainForDexScreener("arbitrum")
	require.True(t, ok)
	assert.Equal(t, int64(42161), id)
}

func TestRegistry_Stablecoins(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	assert.True(t, r.IsStablecoin("usdt"))
	assert.True(t, r.IsStablecoin("USDC"))
	assert.False(t, r.IsStablecoin("WETH"))
}

func TestRegistry_DuplicateAddressKeepsFirstSymbol(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	bsc, ok := r.Get(56)
	require.True(t, ok)
	meta, ok := bsc.PopularMetadata("0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c")
	require.True(t, ok)
	assert.Equal(t, "WBNB", meta.Symbol)

	addr, ok := bsc.PopularAddress("BNB")
	require.True(t, ok)
	assert.Equal(t, "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", addr)
}

func TestLoad_TOML(t *testing.T) {
	doc := `
ticker_chain_id = 1
stablecoins = ["USDC"]

[[chains]]
id = 1
name = "Ethereum"
rpc_url = "http://localhost:8545"
active = true
geckoterminal_network = "eth"

[[chains.popular_tokens]]
symbol = "weth"
address = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
name = "Wrapped Ether"
decimals = 18
`
	path := filepath.Join(t.TempDir(), "chains.toml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r, err := Load(path)
	require.NoError(t, err)

	c, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8545", c.RPCURL)
	addr, ok := c.PopularAddress("WETH")
	require.True(t, ok)
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"unknown extension", "chains.json", "{}"},
		{"duplicate id", "dup.yaml", "chains:\n  - {id: 1, name: a}\n  - {id: 1, name: b}\n"},
		{"non-positive id", "zero.yaml", "chains:\n  - {id: 0, name: a}\n"},
		{"unknown ticker chain", "ticker.yaml", "ticker_chain_id: 9\nchains:\n  - {id: 1, name: a}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_WithRPCOverrides(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	env := map[string]string{"CHAIN_1_RPC_URL": "http://node.internal:8545"}
	overridden := r.WithRPCOverrides(func(k string) string { return env[k] })

	c, _ := overridden.Get(1)
	assert.Equal(t, "http://node.internal:8545", c.RPCURL)

	original, _ := r.Get(1)
	assert.Equal(t, "https://eth.llamarpc.com", original.RPCURL)

	base, _ := overridden.Get(8453)
	assert.Equal(t, "https://mainnet.base.org", base.RPCURL)
}

func TestRegistry_IsActive(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	assert.True(t, r.IsActive(1, "mainnet"))
	assert.False(t, r.IsActive(1, "testnet"))
	assert.True(t, r.IsActive(84532, "testnet"))
	assert.False(t, r.IsActive(999, "mainnet"))
}
