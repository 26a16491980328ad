package domain

import (
	"sort"
	"strings"
)

var sourcePriority = map[string]int{
	SourceGeckoTerminal: 4,
	SourceOnchain:       3,
	SourceDexScreener:   2,
	SourceBinance:       1,
}

// SourcePriority ranks a provenance tag for deduplication. Unknown tags rank 0.
func SourcePriority(source string) int {
	return sourcePriority[source]
}

// Reconcile merges token lists, keeps one record per (chainId, address) with
// the highest source priority, and returns them in display order. On equal
// priority the first record seen is kept.
func Reconcile(groups ...[]Token) []Token {
	seen := make(map[string]int)
	var out []Token

	for _, group := range groups {
		for _, t := range group {
			key := t.Key()
			if i, ok := seen[key]; ok {
				if SourcePriority(t.Source) > SourcePriority(out[i].Source) {
					out[i] = t.Clone()
				}
				continue
			}
			seen[key] = len(out)
			out = append(out, t.Clone())
		}
	}

	SortTokens(out)
	return out
}

// SortTokens orders tokens popular first, then verified first, then by symbol,
// chain id and address.
func SortTokens(tokens []Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i], tokens[j]
		if a.Popular != b.Popular {
			return a.Popular
		}
		if a.Verified != b.Verified {
			return a.Verified
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.ChainID != b.ChainID {
			return a.ChainID < b.ChainID
		}
		return strings.ToLower(a.Address) < strings.ToLower(b.Address)
	})
}
