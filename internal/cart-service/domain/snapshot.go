package domain

import "github.com/shopspring/decimal"

// Snapshot is a point-in-time, read-only view of a cart handed to renderers.
type Snapshot struct {
	CartID    string
	State     State
	Version   uint64
	Items     []LineItem
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	ItemCount int
	Currency  string
	LoadError string
}

func (s Snapshot) SubtotalDisplay() string { return FormatAmount(s.Subtotal, s.Currency) }
func (s Snapshot) TaxDisplay() string      { return FormatAmount(s.Tax, s.Currency) }
func (s Snapshot) TotalDisplay() string    { return FormatAmount(s.Total, s.Currency) }
