// Package security provides request filtering middleware.
package security

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// Config holds the configuration for security middleware
type Config struct {
	FilterEnabled bool
	// MaxQueryLength bounds the raw query string in bytes
	MaxQueryLength int
}

// exemptPaths are never filtered
var exemptPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
}

// scannerPrefixes are paths probed by vulnerability scanners. Nothing in the
// API lives under them.
var scannerPrefixes = []string{
	"/wp-",
	"/.git/",
	"/.env",
	"/cgi-bin/",
	"/phpmyadmin",
	"/xmlrpc.php",
	"/server-status",
	"/.aws/",
	"/actuator",
}

var traversalPatterns = []string{
	"../",
	"..\\",
	"%2e%2e",
	"%00",
}

// Filter returns middleware that rejects scanner probes, path traversal and
// malformed query strings before they reach the token handlers.
func Filter(cfg Config) func(http.Handler) http.Handler {
	maxQuery := cfg.MaxQueryLength
	if maxQuery <= 0 {
		maxQuery = 256
	}

	return func(next http.Handler) http.Handler {
		if !cfg.FilterEnabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if blockedPath(r.URL) {
				writeBlocked(w, http.StatusNotFound, "NOT_FOUND", "Not found")
				return
			}

			if len(r.URL.RawQuery) > maxQuery {
				writeBlocked(w, http.StatusRequestURITooLong, "QUERY_TOO_LONG", "Query string too long")
				return
			}

			values, err := url.ParseQuery(r.URL.RawQuery)
			if err != nil || !cleanValues(values) {
				writeBlocked(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func blockedPath(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, prefix := range scannerPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	raw := strings.ToLower(u.EscapedPath())
	for _, p := range traversalPatterns {
		if strings.Contains(path, p) || strings.Contains(raw, p) {
			return true
		}
	}
	return false
}

// cleanValues rejects control characters, which no token symbol, address or
// ticker contains.
func cleanValues(values url.Values) bool {
	for _, vs := range values {
		for _, v := range vs {
			if strings.IndexFunc(v, unicode.IsControl) >= 0 {
				return false
			}
		}
	}
	return true
}

func writeBlocked(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
