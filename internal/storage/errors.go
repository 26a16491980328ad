package storage

import "errors"

// Common storage errors
var (
	ErrCacheMiss = errors.New("cache miss")
	ErrClosed    = errors.New("cache closed")
)
