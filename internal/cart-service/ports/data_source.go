package ports

import (
	"context"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
)

// DataSource fetches the line items a cart is activated with. Implementations
// return zero or more fully materialized records, or an error. Errors wrapped
// with backoff.Permanent are not retried by the caller.
type DataSource interface {
	Fetch(ctx context.Context, cartID string) ([]domain.LineItem, error)
}

// DataSourceFunc adapts a plain function to DataSource.
type DataSourceFunc func(ctx context.Context, cartID string) ([]domain.LineItem, error)

func (f DataSourceFunc) Fetch(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	return f(ctx, cartID)
}
