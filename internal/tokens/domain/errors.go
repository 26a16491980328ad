package domain

import "errors"

// Common errors returned by the token service.
var (
	ErrUnsupportedInput  = errors.New("unsupported input")
	ErrNotFound          = errors.New("token not found")
	ErrChainNotSupported = errors.New("chain not supported")
	ErrCacheUnavailable  = errors.New("cache unavailable")
	ErrInvalidSymbols    = errors.New("invalid ticker symbols")
	ErrTickersDisabled   = errors.New("ticker source not configured")
	ErrUpstream          = errors.New("upstream provider unavailable")
)
