// Package realip resolves the originating client address for requests that
// arrive through trusted reverse proxies.
package realip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey struct{}

// Config holds the configuration for the real IP middleware
type Config struct {
	// TrustProxy enables X-Forwarded-For and X-Real-IP parsing
	TrustProxy bool
	// TrustedProxies lists CIDR ranges or bare addresses of trusted proxies
	TrustedProxies []string
}

// Resolver picks the client address out of a request.
type Resolver struct {
	trustProxy bool
	trusted    []netip.Prefix
}

// NewResolver parses the trusted proxy list. Bare addresses are treated as
// single-host prefixes.
func NewResolver(cfg Config) (*Resolver, error) {
	r := &Resolver{trustProxy: cfg.TrustProxy}
	if !cfg.TrustProxy {
		return r, nil
	}
	for _, entry := range cfg.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if p, err := netip.ParsePrefix(entry); err == nil {
			r.trusted = append(r.trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", entry)
		}
		r.trusted = append(r.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return r, nil
}

// Middleware stores the resolved client address in the request context.
// Invalid trusted proxy entries panic at startup.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	res, err := NewResolver(cfg)
	if err != nil {
		panic(err)
	}
	return res.Middleware
}

// Middleware stores the resolved client address in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKey{}, res.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP walks X-Forwarded-For right to left and returns the first hop
// that is not a trusted proxy.
func (res *Resolver) ClientIP(r *http.Request) string {
	remote := hostOnly(r.RemoteAddr)
	if !res.trustProxy || !res.isTrusted(remote) {
		return remote
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !res.isTrusted(hop) {
			return hop
		}
	}

	// every hop was a proxy
	if first := strings.TrimSpace(hops[0]); first != "" {
		return first
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

func (res *Resolver) isTrusted(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// FromContext returns the client address stored by the middleware.
func FromContext(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(contextKey{}).(string)
	return ip, ok && ip != ""
}

// ClientIP returns the resolved client address, falling back to RemoteAddr
// when the middleware did not run.
func ClientIP(r *http.Request) string {
	if ip, ok := FromContext(r.Context()); ok {
		return ip
	}
	return hostOnly(r.RemoteAddr)
}
