package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
)

const snapshotOperation = "snapshot"

// storedCart is the cached form of a cart. Derived values are recomputed on
// restore, so only the items and lifecycle fields are kept.
type storedCart struct {
	ID        string            `json:"id"`
	State     domain.State      `json:"state"`
	Version   uint64            `json:"version"`
	Items     []domain.LineItem `json:"items"`
	LoadError string            `json:"load_error,omitempty"`
}

func (s *CartService) saveSnapshot(ctx context.Context, cart *domain.Cart) {
	if s.cache == nil {
		return
	}
	snap := cart.Snapshot()
	b, err := json.Marshal(storedCart{
		ID:        snap.CartID,
		State:     snap.State,
		Version:   snap.Version,
		Items:     snap.Items,
		LoadError: snap.LoadError,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to encode cart snapshot", "cart_id", snap.CartID, "error", err)
		return
	}
	key := s.cache.GenerateKey(snapshotOperation, snap.CartID)
	if err := s.cache.Set(ctx, key, b, s.sessionTTL); err != nil {
		slog.WarnContext(ctx, "failed to store cart snapshot", "cart_id", snap.CartID, "error", err)
	}
}

func (s *CartService) loadSnapshot(ctx context.Context, cartID string) (*domain.Cart, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.GenerateKey(snapshotOperation, cartID))
	if err != nil {
		slog.WarnContext(ctx, "failed to read cart snapshot", "cart_id", cartID, "error", err)
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var sc storedCart
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		slog.WarnContext(ctx, "discarding corrupt cart snapshot", "cart_id", cartID, "error", err)
		return nil, false
	}
	return domain.Restore(domain.Snapshot{
		CartID:    sc.ID,
		State:     sc.State,
		Version:   sc.Version,
		Items:     sc.Items,
		LoadError: sc.LoadError,
	}, s.policy), true
}

func (s *CartService) dropSnapshot(ctx context.Context, cartID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cache.GenerateKey(snapshotOperation, cartID)); err != nil {
		slog.WarnContext(ctx, "failed to delete cart snapshot", "cart_id", cartID, "error", err)
	}
}
