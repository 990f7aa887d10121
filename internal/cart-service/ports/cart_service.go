package ports

import (
	"context"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/cartlog"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
)

// CartService is the presentation boundary: everything a UI may read from or
// do to a cart session.
type CartService interface {
	Open(ctx context.Context, externalID string) (domain.Snapshot, error)
	Reload(ctx context.Context, cartID string) (domain.Snapshot, error)
	Snapshot(ctx context.Context, cartID string) (domain.Snapshot, error)
	Subscribe(ctx context.Context, cartID string) (<-chan domain.Snapshot, func(), error)
	UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (domain.Snapshot, error)
	RemoveItem(ctx context.Context, cartID, itemID string) (domain.Snapshot, error)
	AddItem(ctx context.Context, cartID string, item domain.LineItem) (domain.LineItem, domain.Snapshot, error)
	Close(ctx context.Context, cartID string) error
	History(ctx context.Context, cartID string) ([]cartlog.Entry, error)
	Ping(ctx context.Context) error
}
