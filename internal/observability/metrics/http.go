package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// unmatchedRoute labels requests no route claimed.
const unmatchedRoute = "unmatched"

// operations names the API routes for the operation label.
var operations = map[string]string{
	"/api/v1/tokens/search":              "search",
	"/api/v1/tokens/enrich":              "enrich",
	"/api/v1/tokens/{chainId}/{address}": "token",
	"/api/v1/chains":                     "chains",
	"/api/v1/tickers":                    "tickers",
	"/health":                            "health",
	"/healthz":                           "health",
	"/readyz":                            "ready",
	"/metrics":                           "metrics",
}

// Middleware records request counts, latency and in-flight requests labelled
// by chi route pattern. It must be mounted on the chi router.
func Middleware(next http.Handler) http.Handler {
	if !enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		httpInFlight.Inc()
		defer func() {
			httpInFlight.Dec()

			route := routeLabel(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, operationLabel(route), strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(ww, r)
	})
}

// routeLabel returns the matched chi route pattern for r. It is only
// complete once the router has served the request.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	// a subrouter that matched nothing leaves its mount wildcard behind
	pattern := rctx.RoutePattern()
	if pattern == "" || strings.HasSuffix(pattern, "*") {
		return unmatchedRoute
	}
	return pattern
}

func operationLabel(route string) string {
	if op, ok := operations[route]; ok {
		return op
	}
	return "other"
}
