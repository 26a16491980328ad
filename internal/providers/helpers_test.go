package providers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenscope/internal/chains"
)

const (
	wethAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdcAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	wbnbAddress = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) *chains.Registry {
	t.Helper()
	r, err := chains.NewRegistry(chains.File{
		TickerChainID: 56,
		Stablecoins:   []string{"USDT", "USDC", "BUSD"},
		Chains: []chains.ChainConfig{
			{ID: 1, Name: "Ethereum", Active: true, GeckoTerminalNetwork: "eth", DexScreenerChain: "ethereum"},
			{
				ID: 56, Name: "BNB Smart Chain", Active: true, GeckoTerminalNetwork: "bsc", DexScreenerChain: "bsc",
				PopularTokens: []chains.PopularToken{
					{Symbol: "WBNB", Address: wbnbAddress, Name: "Wrapped BNB", Decimals: 18},
					{Symbol: "BNB", Address: wbnbAddress, Name: "Wrapped BNB", Decimals: 18},
					{Symbol: "ETH", Address: "0x2170Ed0880ac9A755fd29B2688956BD959F933F8", Name: "Binance-Peg Ethereum Token", Decimals: 18},
					{Symbol: "CAKE", Address: "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82", Name: "PancakeSwap Token", Decimals: 18},
				},
			},
			{ID: 137, Name: "Polygon", Active: false, GeckoTerminalNetwork: "polygon_pos", DexScreenerChain: "polygon"},
			{ID: 84532, Name: "Base Sepolia", Active: true, Testnet: true, GeckoTerminalNetwork: "base_sepolia", GeckoTerminalAliases: []string{"base-sepolia"}},
		},
	})
	require.NoError(t, err)
	return r
}

// fakeAPI serves canned responses by path and counts requests.
type fakeAPI struct {
	handlers map[string]http.HandlerFunc
	hits     atomic.Int32
}

func newFakeAPI(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	srv, _ := newCountingAPI(t, handlers)
	return srv
}

func newCountingAPI(t *testing.T, handlers map[string]http.HandlerFunc) (*httptest.Server, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{handlers: handlers}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv, api
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	h, ok := f.handlers[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func newTestClient(name, baseURL string) *Client {
	return NewClient(ClientConfig{
		Name:             name,
		BaseURL:          baseURL,
		Timeout:          time.Second,
		FailureThreshold: 3,
		BreakerOpen:      time.Minute,
	})
}
