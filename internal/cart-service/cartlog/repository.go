package cartlog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetLatest when a cart has no entries.
var ErrNotFound = errors.New("cartlog: no entries")

// Repository persists cart log entries. Save appends; it never updates.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
	List(ctx context.Context, cartID string) ([]Entry, error)
	GetLatest(ctx context.Context, cartID string) (*Entry, error)
	Ping(ctx context.Context) error
}
