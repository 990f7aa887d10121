package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady        = errors.New("cart is still loading")
	ErrItemNotFound    = errors.New("line item not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidItem     = errors.New("invalid line item")
)

func invalidItem(i LineItem, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidItem, i.ID, reason)
}
