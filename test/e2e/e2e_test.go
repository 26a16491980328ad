//go:build e2e

package e2e

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/pendergraft/tokenscope/internal/config"
	"github.com/pendergraft/tokenscope/internal/server"
	"github.com/pendergraft/tokenscope/pkg/client"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	Upstream          *upstream
	Engine            *server.Engine
	TestServer        *httptest.Server
	Client            *client.Client
}

var testCtx *TestContext

func TestMain(m *testing.M) {
	ctx := context.Background()
	testCtx = &TestContext{}

	container, connString, err := setupPostgresE(ctx)
	if err != nil {
		log.Fatalf("setting up postgres: %v", err)
	}
	testCtx.PostgresContainer = container

	testCtx.Upstream = newUpstream()

	dir, err := os.MkdirTemp("", "tokenscope-e2e")
	if err != nil {
		log.Fatalf("creating temp dir: %v", err)
	}
	chainsFile, err := writeChainsFile(dir, testCtx.Upstream.URL("/rpc"))
	if err != nil {
		log.Fatalf("writing chains file: %v", err)
	}

	cfg := testConfig(connString, chainsFile, testCtx.Upstream)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testCtx.Engine, err = server.NewEngine(cfg, logger)
	if err != nil {
		log.Fatalf("building engine: %v", err)
	}
	srv := server.New(cfg, testCtx.Engine.Service, testCtx.Engine.Cache, logger)
	testCtx.TestServer = httptest.NewServer(srv.Handler())
	testCtx.Client = client.New(testCtx.TestServer.URL)

	code := m.Run()

	testCtx.TestServer.Close()
	testCtx.Engine.Close()
	testCtx.Upstream.Close()
	_ = container.Terminate(ctx)
	os.RemoveAll(dir)

	os.Exit(code)
}

func testConfig(connString, chainsFile string, up *upstream) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 30},
		Cache: config.CacheConfig{
			Backend:    "postgres",
			TTLSeconds: 300,
			Postgres:   config.PostgresConfig{URL: connString},
		},
		Security: config.SecurityConfig{FilterEnabled: true, MaxQueryLength: 256},
		Engine: config.EngineConfig{
			Environment:          "mainnet",
			ChainsFile:           chainsFile,
			SearchTimeout:        10 * time.Second,
			QuickCheckTimeout:    2 * time.Second,
			MetadataTimeout:      2 * time.Second,
			EnrichAddressResults: true,
			PopularFallback:      true,
		},
		Providers: config.ProvidersConfig{
			Timeout:          2 * time.Second,
			FailureThreshold: 5,
			BreakerOpen:      time.Second,
			GeckoTerminal:    config.ProviderConfig{BaseURL: up.URL("/gecko")},
			DexScreener:      config.ProviderConfig{BaseURL: up.URL("/dex")},
			Binance:          config.ProviderConfig{BaseURL: up.URL("/binance")},
		},
	}
}
