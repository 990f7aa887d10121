package domain

import "github.com/shopspring/decimal"

// MaxAddQuantity caps a single add-to-cart request.
const MaxAddQuantity = 10

// LineItem is one product/variant/quantity selection held in a cart.
type LineItem struct {
	ID        string
	SKU       string
	Name      string
	UnitPrice decimal.Decimal
	Currency  string
	Image     string
	Color     string
	Size      string
	Quantity  int
}

// LineTotal returns UnitPrice × Quantity at full precision.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// sameVariant reports whether two items describe the same product variant.
func (i LineItem) sameVariant(o LineItem) bool {
	return i.SKU == o.SKU && i.Color == o.Color && i.Size == o.Size
}

func (i LineItem) validate() error {
	switch {
	case i.ID == "":
		return invalidItem(i, "id is required")
	case i.Quantity < 1:
		return invalidItem(i, "quantity must be at least 1")
	case i.UnitPrice.IsNegative():
		return invalidItem(i, "unit price must not be negative")
	}
	return nil
}
