// Package validation provides input validation for the tokenscope API.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Limits for batched ticker requests
const (
	MaxTickerSymbols = 100
	MaxQueryLength   = 128
)

var tickerSymbolRegex = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int64) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ParseChainID parses and validates a chain ID path segment
func ParseChainID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain ID %q", s)
	}
	if err := ValidateChainID(id); err != nil {
		return 0, err
	}
	return id, nil
}

// ValidateQuery validates a raw search query
func ValidateQuery(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return errors.New("query cannot be empty")
	}
	if len(q) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	return nil
}

// NormalizeTickerSymbols upper-cases and trims symbols, dropping empty entries
func NormalizeTickerSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ValidateTickerSymbols validates a batch of exchange trading pair symbols
func ValidateTickerSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return errors.New("at least one symbol is required")
	}
	if len(symbols) > MaxTickerSymbols {
		return fmt.Errorf("too many symbols (max %d)", MaxTickerSymbols)
	}
	for _, s := range symbols {
		if !tickerSymbolRegex.MatchString(s) {
			return fmt.Errorf("invalid symbol %q: must be 2-20 uppercase alphanumerics", s)
		}
	}
	return nil
}
