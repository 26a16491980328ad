// Package transport provides HTTP handlers for the tokens domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/tokenscope/internal/chains"
	"github.com/pendergraft/tokenscope/internal/tokens/domain"
	"github.com/pendergraft/tokenscope/internal/validation"
)

const maxEnrichBody = 64 << 10

// Service defines the token service interface for HTTP transport.
type Service interface {
	Search(ctx context.Context, query string) ([]domain.Token, error)
	Enrich(ctx context.Context, t domain.Token) (domain.Token, error)
	TokenByAddress(ctx context.Context, chainID int64, address string) (*domain.Token, error)
	Tickers(ctx context.Context, symbols []string) (map[string]domain.Ticker, error)
	Chains(ctx context.Context) []chains.ChainConfig
}

// Handler handles HTTP requests for tokens.
type Handler struct {
	svc Service
}

// NewHandler creates a new tokens HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the token, chain and ticker routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tokens", func(r chi.Router) {
		r.Get("/search", h.handleSearch)
		r.Post("/enrich", h.handleEnrich)
		r.Get("/{chainId}/{address}", h.handleGet)
	})
	r.Get("/chains", h.handleChains)
	r.Get("/tickers", h.handleTickers)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if err := validation.ValidateQuery(q); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	tokens, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:     q,
		InputType: string(domain.Classify(q)),
		Count:     len(tokens),
		Data:      tokens,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	chainID, err := validation.ParseChainID(chi.URLParam(r, "chainId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	address := chi.URLParam(r, "address")
	if err := validation.ValidateAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	token, err := h.svc.TokenByAddress(r.Context(), chainID, address)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (h *Handler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnrichBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	var token domain.Token
	if err := json.Unmarshal(body, &token); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	enriched, err := h.svc.Enrich(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, enriched)
}

func (h *Handler) handleChains(w http.ResponseWriter, r *http.Request) {
	active := h.svc.Chains(r.Context())
	items := make([]ChainItem, len(active))
	for i, c := range active {
		items[i] = newChainItem(c)
	}
	writeJSON(w, http.StatusOK, ChainListResponse{Data: items})
}

func (h *Handler) handleTickers(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, v := range r.URL.Query()["symbols"] {
		symbols = append(symbols, strings.Split(v, ",")...)
	}

	tickers, err := h.svc.Tickers(r.Context(), symbols)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TickersResponse{Data: tickers})
}

// Helper functions

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedInput), errors.Is(err, domain.ErrInvalidSymbols):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Token not found")
	case errors.Is(err, domain.ErrChainNotSupported):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Chain not supported")
	case errors.Is(err, domain.ErrTickersDisabled):
		writeError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Ticker source not configured")
	case errors.Is(err, domain.ErrUpstream):
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Ticker provider unavailable")
	case errors.Is(err, domain.ErrCacheUnavailable):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Cache unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
