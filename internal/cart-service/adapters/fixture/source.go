// Package fixture provides a hard-coded cart data source for local
// development and demos, standing in for a real commerce backend.
package fixture

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/ports"
)

var _ ports.DataSource = (*Source)(nil)

// Source returns the same items for every cart after an optional delay.
type Source struct {
	items []domain.LineItem
	delay time.Duration
}

// NewSource returns a Source serving DefaultItems.
func NewSource(delay time.Duration) *Source {
	return &Source{items: DefaultItems(), delay: delay}
}

// NewSourceWithItems returns a Source serving the given items.
func NewSourceWithItems(items []domain.LineItem, delay time.Duration) *Source {
	return &Source{items: items, delay: delay}
}

// Fetch waits for the configured delay, then returns a copy of the fixture.
func (s *Source) Fetch(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	slog.DebugContext(ctx, "serving fixture cart", "cart_id", cartID, "items", len(s.items))
	return append([]domain.LineItem(nil), s.items...), nil
}

// DefaultItems is the demo cart: one Hero Hoodie and two Stellar Jackets.
func DefaultItems() []domain.LineItem {
	return []domain.LineItem{
		{
			ID:        "1",
			SKU:       "MH01",
			Name:      "Hero Hoodie",
			UnitPrice: decimal.RequireFromString("54.00"),
			Currency:  "USD",
			Image:     "https://via.placeholder.com/100x100?text=Hero+Hoodie",
			Color:     "Black",
			Size:      "M",
			Quantity:  1,
		},
		{
			ID:        "2",
			SKU:       "MJ01",
			Name:      "Stellar Jacket",
			UnitPrice: decimal.RequireFromString("75.00"),
			Currency:  "USD",
			Image:     "https://via.placeholder.com/100x100?text=Stellar+Jacket",
			Color:     "Navy",
			Size:      "L",
			Quantity:  2,
		},
	}
}
