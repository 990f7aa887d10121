package httpx

import "github.com/shopspring/decimal"

type OpenCartRequest struct {
	ExternalID string `json:"external_id"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type AddItemRequest struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
	Image     string          `json:"image"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
}

type CartResponse struct {
	ID        string         `json:"id"`
	State     string         `json:"state"`
	Version   uint64         `json:"version"`
	Items     []ItemResponse `json:"items"`
	IsEmpty   bool           `json:"is_empty"`
	ItemCount int            `json:"item_count"`
	Subtotal  string         `json:"subtotal"`
	Tax       string         `json:"tax"`
	Total     string         `json:"total"`
	Currency  string         `json:"currency"`
	Display   TotalsDisplay  `json:"display"`
	LoadError string         `json:"load_error,omitempty"`
}

// TotalsDisplay holds the derived amounts formatted for rendering, e.g. "220.83 USD".
type TotalsDisplay struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type ItemResponse struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	UnitPrice    string `json:"unit_price"`
	Currency     string `json:"currency"`
	PriceDisplay string `json:"price_display"`
	Image        string `json:"image,omitempty"`
	Color        string `json:"color"`
	Size         string `json:"size"`
	Quantity     int    `json:"quantity"`
	LineTotal    string `json:"line_total"`
}

type AddItemResponse struct {
	Item ItemResponse `json:"item"`
	Cart CartResponse `json:"cart"`
}

type HistoryEntryResponse struct {
	Action    string `json:"action"`
	ItemID    string `json:"item_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	Version   uint64 `json:"version"`
	Total     string `json:"total"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	At        string `json:"at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
