package metrics

import (
	"strconv"
	"time"
)

// Search records a completed search.
func Search(inputType, outcome string, d time.Duration, results int) {
	if !enabled {
		return
	}
	searchTotal.WithLabelValues(inputType, outcome).Inc()
	searchDuration.WithLabelValues(inputType).Observe(d.Seconds())
	searchResults.Observe(float64(results))
}

// CacheOperation records a cache get/set and its result.
func CacheOperation(op, result string) {
	if !enabled {
		return
	}
	cacheOpsTotal.WithLabelValues(op, result).Inc()
}

// ProviderRequest records an outbound provider call.
func ProviderRequest(provider, status string, d time.Duration) {
	if !enabled {
		return
	}
	providerRequestsTotal.WithLabelValues(provider, status).Inc()
	providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// BreakerState records a provider circuit breaker transition.
func BreakerState(provider string, state int) {
	if !enabled {
		return
	}
	breakerState.WithLabelValues(provider).Set(float64(state))
}

// OnchainLookup records a contract call outcome on a chain.
func OnchainLookup(chainID int64, result string) {
	if !enabled {
		return
	}
	onchainLookupsTotal.WithLabelValues(strconv.FormatInt(chainID, 10), result).Inc()
}

// Enrichment records which source supplied market data.
func Enrichment(source string) {
	if !enabled {
		return
	}
	enrichmentTotal.WithLabelValues(source).Inc()
}
