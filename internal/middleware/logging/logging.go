// Package logging provides structured HTTP access logging.
package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/tokenscope/internal/middleware/realip"
)

// quietPaths are logged at debug so probes and scrapes do not flood the log
var quietPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// Middleware logs one line per request. Server errors log at warn, probe
// traffic at debug, everything else at info. The route attribute is the chi
// pattern, so /tokens/1/0xabc... is logged as /tokens/{chainId}/{address}.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level := slog.LevelInfo
				switch {
				case quietPaths[r.URL.Path]:
					level = slog.LevelDebug
				case status >= http.StatusInternalServerError:
					level = slog.LevelWarn
				}

				attrs := []slog.Attr{
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.String("duration", time.Since(start).String()),
					slog.String("client_ip", realip.ClientIP(r)),
				}
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						attrs = append(attrs, slog.String("route", pattern))
					}
				}
				if q := r.URL.Query().Get("q"); q != "" {
					attrs = append(attrs, slog.String("query", q))
				}

				logger.LogAttrs(context.Background(), level, "request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
