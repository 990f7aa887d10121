package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied to the subtotal (8.25%).
var TaxRate = decimal.RequireFromString("0.0825")

// DefaultCurrency is used for aggregate values of an empty cart.
const DefaultCurrency = "USD"

// FormatAmount renders an amount for display: two decimals followed by the
// currency code, e.g. "54.00 USD". Rounding happens here and nowhere else.
func FormatAmount(d decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", d.StringFixed(2), currency)
}
