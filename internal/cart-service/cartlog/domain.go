// Package cartlog defines the audit trail of cart lifecycle events.
//
// Every open, load, mutation and close of a cart appends one Entry. The log is
// append-only; the latest entry per cart gives its most recent transition,
// and trace_id links each entry to the distributed trace that produced it.
package cartlog

import "time"

// Action is the kind of transition an Entry records.
type Action string

const (
	ActionOpened          Action = "OPENED"
	ActionLoaded          Action = "LOADED"
	ActionLoadFailed      Action = "LOAD_FAILED"
	ActionQuantityUpdated Action = "QUANTITY_UPDATED"
	ActionItemRemoved     Action = "ITEM_REMOVED"
	ActionItemAdded       Action = "ITEM_ADDED"
	ActionClosed          Action = "CLOSED"
)

// Entry is a single row in the cart_logs table.
type Entry struct {
	// CartID identifies the cart session.
	CartID string

	Action Action

	// ItemID is the line item a mutation targeted; empty for cart-level actions.
	ItemID string

	// Quantity is the requested quantity for QUANTITY_UPDATED and ITEM_ADDED.
	Quantity int

	// Version is the cart version after the action.
	Version uint64

	// Total is the display total after the action, e.g. "220.83 USD".
	Total string

	// Error holds the failure message for LOAD_FAILED or a rejected mutation.
	Error string

	RequestID string
	TraceID   string
	SpanID    string

	At time.Time
}
