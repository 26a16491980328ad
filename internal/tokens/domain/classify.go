package domain

import (
	"regexp"
	"strings"
)

// InputType is the classification of a raw query.
type InputType string

// Input classifications
const (
	InputAddress InputType = "address"
	InputSymbol  InputType = "symbol"
	InputUnknown InputType = "unknown"
)

var (
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	symbolPattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{1,10}$`)
)

// Classify decides whether query is an address, a symbol or unclassifiable.
func Classify(query string) InputType {
	q := strings.TrimSpace(query)
	switch {
	case addressPattern.MatchString(q):
		return InputAddress
	case symbolPattern.MatchString(q):
		return InputSymbol
	default:
		return InputUnknown
	}
}

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// CacheKey derives the search cache key from the classification and the
// normalized query.
func CacheKey(inputType InputType, query string) string {
	return "external:search:" + string(inputType) + ":" + strings.ToLower(strings.TrimSpace(query))
}
