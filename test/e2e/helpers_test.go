//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	wethAddress    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	e2eToken       = "0x1111111111111111111111111111111111111111"
	missingAddress = "0x2222222222222222222222222222222222222222"
)

// contract is the ERC20 metadata a fake node answers for one address
type contract struct {
	name, symbol string
	decimals     int64
}

var contracts = map[string]contract{
	wethAddress: {"Wrapped Ether", "WETH", 18},
	e2eToken:    {"E2E Token", "E2E", 9},
}

// upstream fakes the JSON-RPC node and the three market data providers
// behind one listener.
type upstream struct {
	srv      *httptest.Server
	rpcCalls atomic.Int32
	dexCalls atomic.Int32
}

func newUpstream() *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", u.handleRPC)
	mux.HandleFunc("/dex/", u.handleDex)
	mux.HandleFunc("/gecko/", handleGecko)
	mux.HandleFunc("/binance/", handleBinance)
	u.srv = httptest.NewServer(mux)
	return u
}

func (u *upstream) URL(path string) string {
	return u.srv.URL + path
}

func (u *upstream) Close() {
	u.srv.Close()
}

func (u *upstream) handleRPC(w http.ResponseWriter, r *http.Request) {
	u.rpcCalls.Add(1)
	body, _ := io.ReadAll(r.Body)

	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Method != "eth_call" || len(req.Params) == 0 {
		writeRPC(w, req.ID, nil, "method not supported")
		return
	}

	var call struct {
		To    string        `json:"to"`
		Input hexutil.Bytes `json:"input"`
		Data  hexutil.Bytes `json:"data"`
	}
	json.Unmarshal(req.Params[0], &call)
	input := call.Input
	if len(input) == 0 {
		input = call.Data
	}

	c, ok := contracts[strings.ToLower(call.To)]
	if !ok || len(input) < 4 {
		writeRPC(w, req.ID, nil, "execution reverted")
		return
	}

	switch common.Bytes2Hex(input[:4]) {
	case "06fdde03":
		writeRPC(w, req.ID, abiString(c.name), "")
	case "95d89b41":
		writeRPC(w, req.ID, abiString(c.symbol), "")
	case "313ce567":
		writeRPC(w, req.ID, common.LeftPadBytes(big.NewInt(c.decimals).Bytes(), 32), "")
	default:
		writeRPC(w, req.ID, nil, "execution reverted")
	}
}

func writeRPC(w http.ResponseWriter, id json.RawMessage, result []byte, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"jsonrpc": "2.0", "id": id}
	if errMsg != "" {
		resp["error"] = map[string]any{"code": 3, "message": errMsg}
	} else {
		resp["result"] = hexutil.Bytes(result)
	}
	json.NewEncoder(w).Encode(resp)
}

// abiString encodes s as a dynamic ABI string return value
func abiString(s string) []byte {
	out := common.LeftPadBytes(big.NewInt(32).Bytes(), 32)
	out = append(out, common.LeftPadBytes(big.NewInt(int64(len(s))).Bytes(), 32)...)
	padded := make([]byte, (len(s)+31)/32*32)
	copy(padded, s)
	return append(out, padded...)
}

func (u *upstream) handleDex(w http.ResponseWriter, r *http.Request) {
	u.dexCalls.Add(1)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/dex/search/" && strings.EqualFold(r.URL.Query().Get("q"), "WETH"):
		fmt.Fprint(w, `{"pairs":[
		 {"chainId":"ethereum","baseToken":{"address":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2","name":"Wrapped Ether","symbol":"WETH"},
		  "quoteToken":{"address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","name":"USD Coin","symbol":"USDC"}}
		]}`)
	case strings.EqualFold(r.URL.Path, "/dex/tokens/"+e2eToken):
		fmt.Fprint(w, `{"pairs":[
		 {"chainId":"ethereum","baseToken":{"address":"0x1111111111111111111111111111111111111111","symbol":"E2E"},"quoteToken":{"symbol":"WETH"},
		  "priceUsd":"1.50","volume":{"h24":"125000"},"liquidity":{"usd":"900000"},"marketCap":"15000000","priceChange":{"h24":"-2.5"},
		  "info":{"imageUrl":"https://example.com/e2e.png"}}
		]}`)
	default:
		fmt.Fprint(w, `{"pairs":null}`)
	}
}

func handleGecko(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/gecko/search/pools":
		fmt.Fprint(w, `{"data":[]}`)
	case strings.EqualFold(r.URL.Path, "/gecko/networks/eth/tokens/"+wethAddress):
		fmt.Fprint(w, `{"data":{"attributes":{"name":"Wrapped Ether","symbol":"WETH","decimals":18,
		  "image_url":"https://example.com/weth.png","price_usd":"3000.25","fdv_usd":"9000000000",
		  "market_cap_usd":null,"volume_usd":{"h24":"123456789.5"}}}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors":[{"status":"404","title":"Not Found"}]}`)
	}
}

func handleBinance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/binance/ticker/price":
		if sym := r.URL.Query().Get("symbol"); sym != "" {
			if sym != "ETHUSDT" {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
				return
			}
			fmt.Fprint(w, `{"symbol":"ETHUSDT","price":"3001.00"}`)
			return
		}
		fmt.Fprint(w, `[{"symbol":"ETHUSDT","price":"3001.00"},{"symbol":"BTCUSDT","price":"65000.00"}]`)
	case "/binance/ticker/24hr":
		fmt.Fprint(w, `[{"symbol":"ETHUSDT","lastPrice":"3001.00","priceChange":"12","priceChangePercent":"0.4",
		  "highPrice":"3050","lowPrice":"2950","volume":"9999","quoteVolume":"30000000"}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// writeChainsFile writes a one-chain registry pointing at the fake node
func writeChainsFile(dir, rpcURL string) (string, error) {
	doc := fmt.Sprintf(`ticker_chain_id: 1
stablecoins: [USDC, USDT]
chains:
  - id: 1
    name: Ethereum
    rpc_url: %s
    active: true
    geckoterminal_network: eth
    dexscreener_chain: ethereum
    popular_tokens:
      - {symbol: WETH, address: "%s", name: Wrapped Ether, decimals: 18, binance_symbol: ETH, tags: [wrapped]}
`, rpcURL, wethAddress)

	path := filepath.Join(dir, "chains.yaml")
	return path, os.WriteFile(path, []byte(doc), 0o644)
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("tokenscope"),
		postgres.WithUsername("tokenscope"),
		postgres.WithPassword("tokenscope"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return container, connString, nil
}
