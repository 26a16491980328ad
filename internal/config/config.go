package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
	Metrics   MetricsConfig
	Engine    EngineConfig
	Providers ProvidersConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	IdleTimeout    int // seconds
	RequestTimeout int // seconds
}

// CacheConfig holds search result cache settings
type CacheConfig struct {
	Backend    string // "memory", "redis", "sqlite" or "postgres"
	TTLSeconds int
	MaxEntries int
	Redis      RedisConfig
	Postgres   PostgresConfig
	SQLite     SQLiteConfig
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL string
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// RateLimitConfig holds inbound rate limiting settings
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	BurstSize      int
	CleanupMinutes int
}

// SecurityConfig holds security filter settings
type SecurityConfig struct {
	FilterEnabled  bool
	MaxQueryLength int
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
}

// EngineConfig holds token search engine settings
type EngineConfig struct {
	Environment          string // "mainnet" or "testnet"
	ChainsFile           string // YAML or TOML; empty uses the embedded registry
	SearchTimeout        time.Duration
	QuickCheckTimeout    time.Duration
	MetadataTimeout      time.Duration
	EnrichAddressResults bool
	PopularFallback      bool
}

// ProvidersConfig holds settings for the third-party data sources
type ProvidersConfig struct {
	Timeout          time.Duration
	FailureThreshold int
	BreakerOpen      time.Duration
	GeckoTerminal    ProviderConfig
	DexScreener      ProviderConfig
	Binance          ProviderConfig
}

// ProviderConfig holds per-provider endpoint and throttling settings
type ProviderConfig struct {
	BaseURL        string
	RequestsPerMin int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			Host:           getEnv("HOST", "0.0.0.0"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:    getEnvInt("SERVER_IDLE_TIMEOUT", 120),
			RequestTimeout: getEnvInt("SERVER_REQUEST_TIMEOUT", 30),
		},
		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", "memory"),
			TTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 300),
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),
			Redis: RedisConfig{
				URL: getEnv("REDIS_URL", ""),
			},
			Postgres: PostgresConfig{
				URL: getEnv("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_PATH", "./data/tokenscope.db"),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin: getEnvInt("RATE_LIMIT_RPM", 300),
			BurstSize:      getEnvInt("RATE_LIMIT_BURST", 50),
			CleanupMinutes: getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 10),
		},
		Security: SecurityConfig{
			FilterEnabled:  getEnvBool("SECURITY_FILTER_ENABLED", true),
			MaxQueryLength: getEnvInt("SECURITY_MAX_QUERY_LENGTH", 256),
		},
		Proxy: ProxyConfig{
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		Engine: EngineConfig{
			Environment:          strings.ToLower(getEnv("ENVIRONMENT", "mainnet")),
			ChainsFile:           getEnv("CHAINS_FILE", ""),
			SearchTimeout:        time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 10)) * time.Second,
			QuickCheckTimeout:    time.Duration(getEnvInt("QUICK_CHECK_TIMEOUT_MS", 3000)) * time.Millisecond,
			MetadataTimeout:      time.Duration(getEnvInt("METADATA_TIMEOUT_MS", 5000)) * time.Millisecond,
			EnrichAddressResults: getEnvBool("ENRICH_ADDRESS_RESULTS", true),
			PopularFallback:      getEnvBool("POPULAR_FALLBACK", true),
		},
		Providers: ProvidersConfig{
			Timeout:          time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 5)) * time.Second,
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			BreakerOpen:      time.Duration(getEnvInt("BREAKER_OPEN_SECONDS", 30)) * time.Second,
			GeckoTerminal: ProviderConfig{
				BaseURL:        getEnv("GECKOTERMINAL_BASE_URL", "https://api.geckoterminal.com/api/v2"),
				RequestsPerMin: getEnvInt("GECKOTERMINAL_RPM", 30),
			},
			DexScreener: ProviderConfig{
				BaseURL:        getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com/latest/dex"),
				RequestsPerMin: getEnvInt("DEXSCREENER_RPM", 300),
			},
			Binance: ProviderConfig{
				BaseURL:        getEnv("BINANCE_BASE_URL", "https://api.binance.com/api/v3"),
				RequestsPerMin: getEnvInt("BINANCE_RPM", 1200),
			},
		},
	}

	// Pick a backend from whichever connection URL is present
	if cfg.Cache.Backend == "memory" {
		switch {
		case cfg.Cache.Redis.URL != "":
			cfg.Cache.Backend = "redis"
		case cfg.Cache.Postgres.URL != "":
			cfg.Cache.Backend = "postgres"
		}
	}

	if cfg.Engine.Environment != "testnet" {
		cfg.Engine.Environment = "mainnet"
	}

	return cfg, nil
}

// CacheTTL returns the search result TTL as a duration.
func (c CacheConfig) CacheTTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
