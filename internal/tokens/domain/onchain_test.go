package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenscope/internal/chains"
)

func TestOnchainResolver_ByAddress(t *testing.T) {
	reader := newMockReader().add(1, usdcAddress, chains.ContractMetadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6})
	r := NewOnchainResolver(testRegistry(t), reader, "mainnet", testLogger())

	got := r.ByAddress(context.Background(), "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.Len(t, got, 1)

	tk := got[0]
	assert.Equal(t, int64(1), tk.ChainID)
	assert.Equal(t, usdcAddress, tk.Address)
	assert.Equal(t, "USDC", tk.Symbol)
	assert.Equal(t, uint8(6), tk.Decimals)
	assert.True(t, tk.Verified)
	assert.True(t, tk.Popular)
	assert.Equal(t, []string{"stablecoin"}, tk.Tags)
	assert.Equal(t, SourceOnchain, tk.Source)

	// one quick check per active mainnet chain, full fetch only where it passed
	assert.Equal(t, int32(2), reader.quickCalls.Load())
	assert.Equal(t, int32(1), reader.metadataCalls.Load())
}

func TestOnchainResolver_ByAddressEnvironment(t *testing.T) {
	reader := newMockReader().add(97, usdcAddress, chains.ContractMetadata{Name: "Test USD", Symbol: "TUSD", Decimals: 18})
	registry := testRegistry(t)

	assert.Empty(t, NewOnchainResolver(registry, reader, "mainnet", testLogger()).ByAddress(context.Background(), usdcAddress))

	got := NewOnchainResolver(registry, reader, "testnet", testLogger()).ByAddress(context.Background(), usdcAddress)
	require.Len(t, got, 1)
	assert.Equal(t, int64(97), got[0].ChainID)
	assert.False(t, got[0].Popular)
}

func TestOnchainResolver_PanicIsolatedToChain(t *testing.T) {
	reader := newMockReader().
		add(1, usdcAddress, chains.ContractMetadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6})
	reader.panicOn[56] = true

	r := NewOnchainResolver(testRegistry(t), reader, "mainnet", testLogger())
	got := r.ByAddress(context.Background(), usdcAddress)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ChainID)
}

func TestOnchainResolver_ByAddressDeadline(t *testing.T) {
	reader := newMockReader().add(1, usdcAddress, chains.ContractMetadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6})
	reader.delay = time.Second

	r := NewOnchainResolver(testRegistry(t), reader, "mainnet", testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.Empty(t, r.ByAddress(ctx, usdcAddress))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestOnchainResolver_BySymbol(t *testing.T) {
	reader := newMockReader().
		add(1, wethAddress, chains.ContractMetadata{Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18}).
		add(56, wbnbAddress, chains.ContractMetadata{Name: "Wrapped BNB", Symbol: "WBNB", Decimals: 18})

	r := NewOnchainResolver(testRegistry(t), reader, "mainnet", testLogger())

	got := r.BySymbol(context.Background(), "weth")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ChainID)
	assert.Equal(t, wethAddress, got[0].Address)
	assert.True(t, got[0].Popular)
	assert.Equal(t, "https://logos/weth.png", got[0].LogoURI)

	// no quick check on the symbol path
	assert.Equal(t, int32(0), reader.quickCalls.Load())

	assert.Empty(t, r.BySymbol(context.Background(), "DOGE"))
}

func TestOnchainResolver_BySymbolMetadataFailure(t *testing.T) {
	r := NewOnchainResolver(testRegistry(t), newMockReader(), "mainnet", testLogger())
	assert.Empty(t, r.BySymbol(context.Background(), "WETH"))
}

func TestOnchainResolver_ResolveUnknownChain(t *testing.T) {
	r := NewOnchainResolver(testRegistry(t), newMockReader(), "mainnet", testLogger())
	_, err := r.Resolve(context.Background(), 999, usdcAddress)
	assert.ErrorIs(t, err, chains.ErrChainNotFound)
}
