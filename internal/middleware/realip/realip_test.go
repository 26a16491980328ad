package realip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, cfg Config, remote string, headers map[string]string) string {
	t.Helper()

	var got string
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIP(r)
	}))

	req := httptest.NewRequest("GET", "/api/v1/tokens/search?q=WETH", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestMiddleware_ClientIP(t *testing.T) {
	private := []string{"10.0.0.0/8", "192.168.0.0/16"}

	tests := []struct {
		name    string
		cfg     Config
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "proxy trust disabled",
			cfg:     Config{TrustProxy: false, TrustedProxies: private},
			remote:  "192.168.1.100:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50"},
			want:    "192.168.1.100",
		},
		{
			name:    "trusted proxy chain",
			cfg:     Config{TrustProxy: true, TrustedProxies: private},
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.5"},
			want:    "203.0.113.50",
		},
		{
			name:    "untrusted peer",
			cfg:     Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remote:  "192.168.1.100:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50"},
			want:    "192.168.1.100",
		},
		{
			name:    "spoofed leftmost hop is ignored",
			cfg:     Config{TrustProxy: true, TrustedProxies: private},
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 198.51.100.7, 10.0.0.2"},
			want:    "198.51.100.7",
		},
		{
			name:    "all hops trusted",
			cfg:     Config{TrustProxy: true, TrustedProxies: private},
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "10.1.1.1, 10.2.2.2"},
			want:    "10.1.1.1",
		},
		{
			name:    "x-real-ip fallback",
			cfg:     Config{TrustProxy: true, TrustedProxies: private},
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:   "bare address entry",
			cfg:    Config{TrustProxy: true, TrustedProxies: []string{"172.20.0.3"}},
			remote: "172.20.0.3:443",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.50",
			},
			want: "203.0.113.50",
		},
		{
			name:    "ipv6 proxy",
			cfg:     Config{TrustProxy: true, TrustedProxies: []string{"fd00::/8"}},
			remote:  "[fd00::1]:8080",
			headers: map[string]string{"X-Forwarded-For": "2001:db8::5"},
			want:    "2001:db8::5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(t, tt.cfg, tt.remote, tt.headers))
		})
	}
}

func TestNewResolver_InvalidEntry(t *testing.T) {
	_, err := NewResolver(Config{TrustProxy: true, TrustedProxies: []string{"not-an-ip"}})
	require.Error(t, err)

	// entries are not parsed when proxies are not trusted
	_, err = NewResolver(Config{TrustProxy: false, TrustedProxies: []string{"not-an-ip"}})
	require.NoError(t, err)
}

func TestClientIP_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.1:5555"
	assert.Equal(t, "203.0.113.1", ClientIP(req))

	_, ok := FromContext(req.Context())
	assert.False(t, ok)
}
