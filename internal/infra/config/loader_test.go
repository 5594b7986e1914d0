package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quotegw/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotegw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_DefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), "")
	require.NoError(t, err)

	want := domain.Config{
		HTTP: domain.HTTPConfig{
			ListenAddress:  "0.0.0.0:8100",
			AllowedOrigins: []string{"*"},
			MCPPath:        "/mcp",
		},
		Store: domain.StoreConfig{
			Driver: "bolt",
			Bolt:   domain.BoltConfig{Path: "data/quotegw.db", Bucket: "kv"},
		},
		Fetcher: domain.FetcherConfig{
			BaseURL:        "https://api.api-ninjas.com/v1/quotes",
			TimeoutSeconds: 10,
		},
		Observer: domain.ObserverConfig{NotifyTimeoutSeconds: 5},
		Stream: domain.StreamConfig{
			HeartbeatSeconds: 15,
			BufferSize:       64,
			DeliverEvents:    true,
		},
		Events: domain.EventsConfig{Subject: "quotegw.quote.added"},
		Observability: domain.ObservabilityConfig{
			ListenAddress: "0.0.0.0:9090",
			Metrics:       true,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, Default()); diff != "" {
		t.Fatalf("default mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_FileWithEnvExpansion(t *testing.T) {
	t.Setenv("QGW_TEST_PORT", "8200")
	t.Setenv("QGW_TEST_HEARTBEAT", "3")
	t.Setenv("QGW_TEST_OBSERVER", "http://127.0.0.1:9999/events")

	path := writeConfig(t, `
http:
  listenAddress: "127.0.0.1:${QGW_TEST_PORT}"
  allowedOrigins: ["http://localhost:3000"]
store:
  driver: memory
observer:
  endpoint: ${QGW_TEST_OBSERVER}
stream:
  heartbeatSeconds: ${QGW_TEST_HEARTBEAT}
  deliverEvents: false
quotes:
  uniqueSuffix: true
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:8200", cfg.HTTP.ListenAddress)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, "http://127.0.0.1:9999/events", cfg.Observer.Endpoint)
	require.Equal(t, 3, cfg.Stream.HeartbeatSeconds)
	require.False(t, cfg.Stream.DeliverEvents)
	require.True(t, cfg.Quotes.UniqueSuffix)
	require.Equal(t, 64, cfg.Stream.BufferSize)
}

func TestLoader_EnvironmentOverride(t *testing.T) {
	t.Setenv("QUOTEGW_STORE_DRIVER", "memory")
	t.Setenv("QUOTEGW_FETCHER_TIMEOUTSECONDS", "30")

	cfg, err := NewLoader(nil).Load(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, 30, cfg.Fetcher.TimeoutSeconds)
}

func TestLoader_AggregatesValidationErrors(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: postgres
fetcher:
  baseURL: not-a-url
stream:
  heartbeatSeconds: 0
`)

	_, err := NewLoader(nil).Load(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "store.postgres.url is required for the postgres driver")
	require.Contains(t, err.Error(), `fetcher.baseURL "not-a-url" must be an absolute http(s) url`)
	require.Contains(t, err.Error(), "stream.heartbeatSeconds must be > 0")
	require.Contains(t, err.Error(), "; ")
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestLoader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(nil).Load(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("QGW_DOTENV_VALUE=from-file\n"), 0o600))
	t.Setenv("QGW_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("QGW_DOTENV_VALUE"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	require.Equal(t, "from-file", os.Getenv("QGW_DOTENV_VALUE"))
}

func TestMarshalUsesYAMLKeys(t *testing.T) {
	out, err := Marshal(Default())
	require.NoError(t, err)
	require.Contains(t, string(out), "0.0.0.0:8100")
	require.Contains(t, string(out), "heartbeatSeconds: 15")
}
