// Package providers implements the third-party market data clients used by
// token search and enrichment.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pendergraft/tokenscope/internal/observability/metrics"
)

// Provider names
const (
	GeckoTerminalName = "geckoterminal"
	DexScreenerName   = "dexscreener"
	BinanceName       = "binance"
)

// Default endpoints
const (
	DefaultGeckoTerminalURL = "https://api.geckoterminal.com/api/v2"
	DefaultDexScreenerURL   = "https://api.dexscreener.com/latest/dex"
	DefaultBinanceURL       = "https://api.binance.com/api/v3"
)

const maxBodyBytes = 4 << 20

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ClientConfig configures a guarded provider client.
type ClientConfig struct {
	Name             string
	BaseURL          string
	RequestsPerMin   int
	Timeout          time.Duration
	FailureThreshold int
	BreakerOpen      time.Duration
	HTTPClient       *http.Client
}

// Client issues rate-limited GET requests to one provider behind a circuit
// breaker.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a guarded client for one provider.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerOpen <= 0 {
		cfg.BreakerOpen = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMin > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMin) / 60)
		burst = max(1, cfg.RequestsPerMin/60)
	}

	threshold := uint32(cfg.FailureThreshold)
	name := cfg.Name
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.BreakerState(name, int(to))
		},
	})

	return &Client{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
	}
}

// isSuccessful decides what counts against the breaker. Client errors other
// than 429 and caller cancellation are the caller's problem, not the provider's.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// GetJSON waits for the rate limiter, issues GET baseURL+path?query and
// decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.ProviderRequest(c.name, "throttled", 0)
		return fmt.Errorf("%s rate limit: %w", c.name, err)
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.get(ctx, path, query, out)
	})
	metrics.ProviderRequest(c.name, requestStatus(err), time.Since(start))
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tokenscope/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s reading body: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{Provider: c.name, StatusCode: resp.StatusCode, Body: snippet}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s decoding response: %w", c.name, err)
	}
	return nil
}

func requestStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "breaker_open"
	}
	var se *StatusError
	if errors.As(err, &se) {
		return strconv.Itoa(se.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

// flexString accepts a JSON string, number or null. Providers are not
// consistent about quoting numeric fields.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}

func logFailure(logger *slog.Logger, provider, op, query string, err error) {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		logger.Debug("provider has no data", "provider", provider, "op", op, "query", query)
		return
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, context.Canceled) {
		logger.Debug("provider request skipped", "provider", provider, "op", op, "query", query, "error", err)
		return
	}
	logger.Warn("provider request failed", "provider", provider, "op", op, "query", query, "error", err)
}
