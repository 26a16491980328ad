// Package client provides a Go client for the tokenscope API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is a tokenscope API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new tokenscope client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token is a resolved token with optional market data
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

// SearchResponse is the response for a token search
type SearchResponse struct {
	Query     string  `json:"query"`
	InputType string  `json:"inputType"`
	Count     int     `json:"count"`
	Data      []Token `json:"data"`
}

// Chain is an active chain
type Chain struct {
	ChainID              int64    `json:"chainId"`
	Name                 string   `json:"name"`
	Testnet              bool     `json:"testnet"`
	GeckoTerminalNetwork string   `json:"geckoterminalNetwork,omitempty"`
	DexScreenerChain     string   `json:"dexscreenerChain,omitempty"`
	PopularTokens        []string `json:"popularTokens"`
}

// Ticker is a 24h exchange ticker
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

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Search resolves an address or symbol query
func (c *Client) Search(ctx context.Context, query string) (*SearchResponse, error) {
	var resp SearchResponse
	path := "/api/v1/tokens/search?" + url.Values{"q": {query}}.Encode()
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Token gets one token by chain ID and contract address, with market data
func (c *Client) Token(ctx context.Context, chainID int64, address string) (*Token, error) {
	var resp Token
	path := fmt.Sprintf("/api/v1/tokens/%s/%s", strconv.FormatInt(chainID, 10), url.PathEscape(address))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Enrich attaches market data to a token the caller already resolved
func (c *Client) Enrich(ctx context.Context, token Token) (*Token, error) {
	var resp Token
	if err := c.post(ctx, "/api/v1/tokens/enrich", token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chains lists the chains active in the server's environment
func (c *Client) Chains(ctx context.Context) ([]Chain, error) {
	var resp struct {
		Data []Chain `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/chains", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Tickers fetches 24h tickers for exchange symbols such as BTCUSDT
func (c *Client) Tickers(ctx context.Context, symbols ...string) (map[string]Ticker, error) {
	var resp struct {
		Data map[string]Ticker `json:"data"`
	}
	path := "/api/v1/tickers?" + url.Values{"symbols": {strings.Join(symbols, ",")}}.Encode()
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
	}
	errResp.Error.StatusCode = resp.StatusCode
	return &errResp.Error
}
