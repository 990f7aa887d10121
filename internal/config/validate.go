package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
)

// Validate checks the resolved configuration for values the service cannot run with.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: http_addr must be set")
	}

	switch c.DataSource.Kind {
	case SourceFixture:
		if c.DataSource.FixtureDelay < 0 {
			return errors.New("config: data_source.fixture_delay must not be negative")
		}
	case SourceGraphQL:
		u, err := url.Parse(c.DataSource.GraphQLEndpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: data_source.graphql_endpoint %q must be an absolute URL", c.DataSource.GraphQLEndpoint)
		}
	default:
		return fmt.Errorf("config: unknown data_source.kind %q", c.DataSource.Kind)
	}

	if c.DataSource.RetryMaxElapsed <= 0 {
		return errors.New("config: data_source.retry_max_elapsed must be positive")
	}

	if _, err := domain.ParsePolicy(c.Cart.UnknownItemPolicy); err != nil {
		return fmt.Errorf("config: cart.unknown_item_policy: %w", err)
	}
	if c.Cart.SessionTTL <= 0 {
		return errors.New("config: cart.session_ttl must be positive")
	}

	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return errors.New("config: telemetry.otlp_endpoint must be set when telemetry is enabled")
	}
	return nil
}
