package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "HTTP_ADDR", "GRPC_ADDR", "LOG_LEVEL", "SHUTDOWN_TIMEOUT",
	"DATA_SOURCE", "GRAPHQL_ENDPOINT", "STORE_CODE", "CONTENT_CURRENCY", "FIXTURE_DELAY",
	"FETCH_TIMEOUT", "FETCH_RETRY_INITIAL", "FETCH_RETRY_MAX_INTERVAL", "FETCH_RETRY_MAX_ELAPSED",
	"UNKNOWN_ITEM_POLICY", "SESSION_TTL", "REDIS_ADDR", "CART_LOG_PATH",
	"OTEL_ENABLED", "OTEL_SERVICE_NAME", "OTEL_RESOURCE_ATTRIBUTES_ENV", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATIO",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":9090", c.GRPCAddr)
	assert.Equal(t, SourceFixture, c.DataSource.Kind)
	assert.Equal(t, 500*time.Millisecond, c.DataSource.FixtureDelay)
	assert.Equal(t, "default", c.DataSource.StoreCode)
	assert.Equal(t, "USD", c.DataSource.Currency)
	assert.Equal(t, "ignore", c.Cart.UnknownItemPolicy)
	assert.Equal(t, 30*time.Minute, c.Cart.SessionTTL)
	assert.Empty(t, c.Storage.RedisAddr)
	assert.False(t, c.Telemetry.Enabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":7000"
data_source:
  kind: graphql
  graphql_endpoint: https://shop.example.com/graphql
  store_code: eu
  retry_max_elapsed: 5s
cart:
  unknown_item_policy: reject
  session_ttl: 10m
storage:
  cart_log_path: /var/lib/cart/log.db
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STORE_CODE", "us")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("OTEL_ENABLED", "true")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.HTTPAddr)
	assert.Equal(t, SourceGraphQL, c.DataSource.Kind)
	assert.Equal(t, "https://shop.example.com/graphql", c.DataSource.GraphQLEndpoint)
	assert.Equal(t, "us", c.DataSource.StoreCode, "env wins over file")
	assert.Equal(t, 5*time.Second, c.DataSource.RetryMaxElapsed)
	assert.Equal(t, "reject", c.Cart.UnknownItemPolicy)
	assert.Equal(t, 10*time.Minute, c.Cart.SessionTTL)
	assert.Equal(t, "/var/lib/cart/log.db", c.Storage.CartLogPath)
	assert.Equal(t, "redis:6379", c.Storage.RedisAddr)
	assert.True(t, c.Telemetry.Enabled)
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIXTURE_DELAY", "soon")
	t.Setenv("OTEL_ENABLED", "maybe")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, c.DataSource.FixtureDelay)
	assert.False(t, c.Telemetry.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"unknown source":    func(c *Config) { c.DataSource.Kind = "ftp" },
		"relative endpoint": func(c *Config) { c.DataSource.Kind = SourceGraphQL; c.DataSource.GraphQLEndpoint = "/api/graphql" },
		"bad policy":        func(c *Config) { c.Cart.UnknownItemPolicy = "shrug" },
		"zero ttl":          func(c *Config) { c.Cart.SessionTTL = 0 },
		"no retry budget":   func(c *Config) { c.DataSource.RetryMaxElapsed = 0 },
		"empty http addr":   func(c *Config) { c.HTTPAddr = "" },
		"otel w/o endpoint": func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.OTLPEndpoint = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
