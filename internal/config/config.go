// Package config provides runtime configuration for the cart service.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by CONFIG_FILE, then environment variables. Everything below
// main receives the resolved Config explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceFixture = "fixture"
	SourceGraphQL = "graphql"
)

// Config holds configuration knobs for the servers, the data source and storage.
type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	DataSource DataSourceConfig `yaml:"data_source"`
	Cart       CartConfig       `yaml:"cart"`
	Storage    StorageConfig    `yaml:"storage"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// DataSourceConfig selects where carts are activated from.
type DataSourceConfig struct {
	Kind            string        `yaml:"kind"`
	GraphQLEndpoint string        `yaml:"graphql_endpoint"`
	StoreCode       string        `yaml:"store_code"`
	Currency        string        `yaml:"currency"`
	FixtureDelay    time.Duration `yaml:"fixture_delay"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`

	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"`
	RetryMaxElapsed      time.Duration `yaml:"retry_max_elapsed"`
}

type CartConfig struct {
	// UnknownItemPolicy is "ignore" or "reject".
	UnknownItemPolicy string        `yaml:"unknown_item_policy"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
}

// StorageConfig enables optional backing stores; empty values disable them.
type StorageConfig struct {
	RedisAddr   string `yaml:"redis_addr"`
	CartLogPath string `yaml:"cart_log_path"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		GRPCAddr:        ":9090",
		LogLevel:        "info",
		ShutdownTimeout: 15 * time.Second,
		DataSource: DataSourceConfig{
			Kind:                 SourceFixture,
			GraphQLEndpoint:      "http://localhost:4502/graphql",
			StoreCode:            "default",
			Currency:             "USD",
			FixtureDelay:         500 * time.Millisecond,
			RequestTimeout:       10 * time.Second,
			RetryInitialInterval: 250 * time.Millisecond,
			RetryMaxInterval:     5 * time.Second,
			RetryMaxElapsed:      30 * time.Second,
		},
		Cart: CartConfig{
			UnknownItemPolicy: "ignore",
			SessionTTL:        30 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "cart-service",
			Environment:  "local",
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
	}
}

// Load resolves the configuration from defaults, CONFIG_FILE and the environment.
func Load() (Config, error) {
	cfg := Default()

	if path := getenv("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.ShutdownTimeout = durenv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	ds := &cfg.DataSource
	ds.Kind = getenv("DATA_SOURCE", ds.Kind)
	ds.GraphQLEndpoint = getenv("GRAPHQL_ENDPOINT", ds.GraphQLEndpoint)
	ds.StoreCode = getenv("STORE_CODE", ds.StoreCode)
	ds.Currency = getenv("CONTENT_CURRENCY", ds.Currency)
	ds.FixtureDelay = durenv("FIXTURE_DELAY", ds.FixtureDelay)
	ds.RequestTimeout = durenv("FETCH_TIMEOUT", ds.RequestTimeout)
	ds.RetryInitialInterval = durenv("FETCH_RETRY_INITIAL", ds.RetryInitialInterval)
	ds.RetryMaxInterval = durenv("FETCH_RETRY_MAX_INTERVAL", ds.RetryMaxInterval)
	ds.RetryMaxElapsed = durenv("FETCH_RETRY_MAX_ELAPSED", ds.RetryMaxElapsed)

	cfg.Cart.UnknownItemPolicy = getenv("UNKNOWN_ITEM_POLICY", cfg.Cart.UnknownItemPolicy)
	cfg.Cart.SessionTTL = durenv("SESSION_TTL", cfg.Cart.SessionTTL)

	cfg.Storage.RedisAddr = getenv("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.CartLogPath = getenv("CART_LOG_PATH", cfg.Storage.CartLogPath)

	tel := &cfg.Telemetry
	tel.Enabled = boolenv("OTEL_ENABLED", tel.Enabled)
	tel.ServiceName = getenv("OTEL_SERVICE_NAME", tel.ServiceName)
	tel.Environment = getenv("OTEL_RESOURCE_ATTRIBUTES_ENV", tel.Environment)
	tel.OTLPEndpoint = getenv("OTEL_EXPORTER_OTLP_ENDPOINT", tel.OTLPEndpoint)
	tel.SampleRatio = floatenv("OTEL_SAMPLE_RATIO", tel.SampleRatio)
}
