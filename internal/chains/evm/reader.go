package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/observability/metrics"
)

// Caller is the subset of ethclient.Client used by the reader.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Dialer opens a Caller for an RPC endpoint.
type Dialer func(ctx context.Context, rpcURL string) (Caller, error)

// DialEthclient dials rpcURL with go-ethereum's ethclient.
func DialEthclient(ctx context.Context, rpcURL string) (Caller, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Reader implements chains.Reader for EVM chains. One client per chain is
// dialed lazily and reused.
type Reader struct {
	registry        *chains.Registry
	logger          *slog.Logger
	dial            Dialer
	quickTimeout    time.Duration
	metadataTimeout time.Duration

	mu      sync.Mutex
	clients map[int64]Caller
}

var _ chains.Reader = (*Reader)(nil)

// Option configures a Reader
type Option func(*Reader)

// WithDialer replaces the ethclient dialer.
func WithDialer(d Dialer) Option {
	return func(r *Reader) {
		r.dial = d
	}
}

// WithTimeouts sets the quick check and metadata fetch deadlines.
func WithTimeouts(quick, metadata time.Duration) Option {
	return func(r *Reader) {
		if quick > 0 {
			r.quickTimeout = quick
		}
		if metadata > 0 {
			r.metadataTimeout = metadata
		}
	}
}

// NewReader creates a contract reader over the registry's RPC endpoints.
func NewReader(registry *chains.Registry, logger *slog.Logger, opts ...Option) *Reader {
	r := &Reader{
		registry:        registry,
		logger:          logger,
		dial:            DialEthclient,
		quickTimeout:    3 * time.Second,
		metadataTimeout: 5 * time.Second,
		clients:         make(map[int64]Caller),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes all dialed clients.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}

func (r *Reader) client(ctx context.Context, chainID int64) (Caller, error) {
	r.mu.Lock()
	c, ok := r.clients[chainID]
	r.mu.Unlock()
	if ok {
		return c, nil
	}

	cfg, ok := r.registry.Get(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", chains.ErrChainNotFound, chainID)
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("%w: %d", chains.ErrNoRPC, chainID)
	}

	// dial outside the lock; a racing dial for the same chain is closed below
	dialed, err := r.dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing chain %d: %w", chainID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clients[chainID]; ok {
		dialed.Close()
		return existing, nil
	}
	r.clients[chainID] = dialed
	return dialed, nil
}

func (r *Reader) call(ctx context.Context, chainID int64, address string, selector []byte) ([]byte, error) {
	c, err := r.client(ctx, chainID)
	if err != nil {
		return nil, err
	}

	to := common.HexToAddress(address)
	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: selector}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %x on chain %d: %w", selector, chainID, err)
	}
	return out, nil
}

func (r *Reader) callString(ctx context.Context, chainID int64, address string, selector []byte) (string, error) {
	out, err := r.call(ctx, chainID, address, selector)
	if err != nil {
		return "", err
	}
	s, err := DecodeString(out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyValue
	}
	return s, nil
}

// QuickCheck calls name() under the quick check deadline.
func (r *Reader) QuickCheck(ctx context.Context, chainID int64, address string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.quickTimeout)
	defer cancel()

	_, err := r.callString(ctx, chainID, address, SelectorName)
	if err != nil {
		r.logger.Debug("quick check failed", "chain_id", chainID, "address", address, "error", err)
		metrics.OnchainLookup(chainID, "quick_miss")
		return false
	}
	return true
}

// TokenMetadata fetches name, symbol and decimals under the metadata deadline.
func (r *Reader) TokenMetadata(ctx context.Context, chainID int64, address string) (*chains.ContractMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, r.metadataTimeout)
	defer cancel()

	symbol, err := r.callString(ctx, chainID, address, SelectorSymbol)
	if err != nil {
		metrics.OnchainLookup(chainID, "error")
		return nil, fmt.Errorf("symbol(): %w", err)
	}

	name, err := r.callString(ctx, chainID, address, SelectorName)
	if err != nil {
		metrics.OnchainLookup(chainID, "error")
		return nil, fmt.Errorf("name(): %w", err)
	}

	decimals := DefaultDecimals
	out, err := r.call(ctx, chainID, address, SelectorDecimals)
	if err == nil {
		decimals, err = DecodeDecimals(out)
	}
	if err != nil {
		r.logger.Debug("decimals() failed, using default",
			"chain_id", chainID,
			"address", address,
			"error", err,
		)
		decimals = DefaultDecimals
	}

	metrics.OnchainLookup(chainID, "ok")
	return &chains.ContractMetadata{
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}
