// Package graphql fetches cart contents from a commerce backend's GraphQL API.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/ports"
	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors"
	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors/constants"
)

var _ ports.DataSource = (*Source)(nil)

const cartQuery = `query Cart($cartId: String!) {
  cart(cart_id: $cartId) {
    items {
      uid
      quantity
      product { sku name small_image { url } }
      prices { price { value currency } }
      ... on ConfigurableCartItem {
        configurable_options { option_label value_label }
      }
    }
  }
}`

// Options configures a Source. Endpoint is required.
type Options struct {
	Endpoint  string
	StoreCode string
	Currency  string
	Timeout   time.Duration
	Client    *http.Client
}

// Source is a ports.DataSource backed by a GraphQL endpoint.
type Source struct {
	endpoint  string
	storeCode string
	currency  string
	client    *http.Client
}

func NewSource(opts Options) (*Source, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("graphql: endpoint is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Source{
		endpoint:  opts.Endpoint,
		storeCode: opts.StoreCode,
		currency:  opts.Currency,
		client:    client,
	}, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type response struct {
	Data struct {
		Cart *struct {
			Items []cartItem `json:"items"`
		} `json:"cart"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type cartItem struct {
	UID      string `json:"uid"`
	Quantity int    `json:"quantity"`
	Product  struct {
		SKU        string `json:"sku"`
		Name       string `json:"name"`
		SmallImage struct {
			URL string `json:"url"`
		} `json:"small_image"`
	} `json:"product"`
	Prices struct {
		Price struct {
			Value    decimal.Decimal `json:"value"`
			Currency string          `json:"currency"`
		} `json:"price"`
	} `json:"prices"`
	Options []struct {
		Label string `json:"option_label"`
		Value string `json:"value_label"`
	} `json:"configurable_options"`
}

// Fetch queries the backend for the cart's items. Transport failures and 5xx
// responses are returned as retryable errors; anything the backend rejected
// is wrapped with backoff.Permanent.
func (s *Source) Fetch(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	body, err := json.Marshal(request{
		Query:     cartQuery,
		Variables: map[string]any{"cartId": cartID},
	})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("graphql: encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("graphql: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if s.storeCode != "" {
		req.Header.Set("Store", s.storeCode)
	}
	if s.currency != "" {
		req.Header.Set("Content-Currency", s.currency)
	}
	if requestID := interceptors.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(constants.HeaderXRequestId, requestID)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql: post %s: %w", s.endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("graphql: backend returned %s", res.Status)
	}
	if res.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, backoff.Permanent(fmt.Errorf("graphql: backend returned %s: %s", res.Status, strings.TrimSpace(string(snippet))))
	}

	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("graphql: decode response: %w", err))
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, backoff.Permanent(fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	if out.Data.Cart == nil {
		return nil, backoff.Permanent(fmt.Errorf("graphql: cart %q not found", cartID))
	}

	items := make([]domain.LineItem, 0, len(out.Data.Cart.Items))
	for _, it := range out.Data.Cart.Items {
		items = append(items, s.toLineItem(it))
	}
	return items, nil
}

func (s *Source) toLineItem(it cartItem) domain.LineItem {
	li := domain.LineItem{
		ID:        it.UID,
		SKU:       it.Product.SKU,
		Name:      it.Product.Name,
		UnitPrice: it.Prices.Price.Value,
		Currency:  it.Prices.Price.Currency,
		Image:     it.Product.SmallImage.URL,
		Quantity:  it.Quantity,
	}
	if li.Currency == "" {
		li.Currency = s.currency
	}
	for _, opt := range it.Options {
		switch strings.ToLower(opt.Label) {
		case "color":
			li.Color = opt.Value
		case "size":
			li.Size = opt.Value
		}
	}
	return li
}
