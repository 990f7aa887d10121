// Package domain holds the cart state manager: an ordered collection of line
// items, the mutations allowed on it and the values derived from it.
//
// A Cart starts in StateLoading and moves to StateReady on the first
// successful Load. StateReady is terminal. Mutations are only accepted in
// StateReady. Derived values (subtotal, tax, total, item count) are computed
// on demand and never stored.
package domain

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the lifecycle state of a cart.
type State string

const (
	StateLoading State = "LOADING"
	StateReady   State = "READY"
)

// UnknownItemPolicy decides what a mutation does when the item id is absent.
type UnknownItemPolicy string

const (
	// PolicyIgnore silently ignores unknown ids and out-of-range quantities.
	PolicyIgnore UnknownItemPolicy = "ignore"
	// PolicyReject reports ErrItemNotFound / ErrInvalidQuantity to the caller.
	PolicyReject UnknownItemPolicy = "reject"
)

// ParsePolicy converts a configuration value into an UnknownItemPolicy.
func ParsePolicy(s string) (UnknownItemPolicy, error) {
	switch p := UnknownItemPolicy(s); p {
	case PolicyIgnore, PolicyReject:
		return p, nil
	case "":
		return PolicyIgnore, nil
	default:
		return "", fmt.Errorf("domain: unknown item policy %q", s)
	}
}

// Cart owns its line items exclusively. All operations are serialized by an
// internal mutex, so each one runs to completion before the next starts.
type Cart struct {
	mu        sync.Mutex
	id        string
	state     State
	items     []LineItem
	policy    UnknownItemPolicy
	version   uint64
	loadError string

	nextSub uint64
	subs    map[uint64]chan Snapshot
	closed  bool
}

// NewCart returns an empty cart in StateLoading.
func NewCart(id string, policy UnknownItemPolicy) *Cart {
	if policy == "" {
		policy = PolicyIgnore
	}
	return &Cart{
		id:     id,
		state:  StateLoading,
		policy: policy,
		subs:   make(map[uint64]chan Snapshot),
	}
}

// Restore rebuilds a cart from a previously taken snapshot.
func Restore(s Snapshot, policy UnknownItemPolicy) *Cart {
	c := NewCart(s.CartID, policy)
	c.state = s.State
	c.items = append([]LineItem(nil), s.Items...)
	c.version = s.Version
	c.loadError = s.LoadError
	return c
}

func (c *Cart) ID() string { return c.id }

func (c *Cart) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Version increases with every observable change. Pollers compare it with the
// last version they rendered.
func (c *Cart) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Load replaces the cart contents and moves the cart to StateReady. The batch
// is validated first; an invalid record rejects the whole batch and leaves
// the cart untouched.
func (c *Cart) Load(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.validate(); err != nil {
			return err
		}
		if _, dup := seen[it.ID]; dup {
			return invalidItem(it, "duplicate id")
		}
		seen[it.ID] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(make([]LineItem, 0, len(items)), items...)
	c.state = StateReady
	c.loadError = ""
	c.changed()
	return nil
}

// MarkLoadFailed records why the last fetch failed. The cart stays in
// StateLoading; a Ready cart ignores the call.
func (c *Cart) MarkLoadFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoading || err == nil {
		return
	}
	c.loadError = err.Error()
	c.changed()
}

// UpdateQuantity sets the quantity of an item. A quantity below 1 never
// changes anything.
func (c *Cart) UpdateQuantity(itemID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}

	idx := c.indexOf(itemID)
	if idx < 0 {
		return c.unknown(itemID)
	}
	if quantity < 1 {
		if c.policy == PolicyReject {
			return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
		}
		return nil
	}
	if c.items[idx].Quantity == quantity {
		return nil
	}
	c.items[idx].Quantity = quantity
	c.changed()
	return nil
}

// RemoveItem deletes an item from the cart.
func (c *Cart) RemoveItem(itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}

	idx := c.indexOf(itemID)
	if idx < 0 {
		return c.unknown(itemID)
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.changed()
	return nil
}

// AddItem puts a product selection into the cart. A line with the same SKU,
// color and size absorbs the quantity; otherwise a new line is appended with
// a fresh id. The quantity must be within [1, MaxAddQuantity].
func (c *Cart) AddItem(item LineItem) (LineItem, error) {
	if item.Quantity < 1 || item.Quantity > MaxAddQuantity {
		return LineItem{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidQuantity, item.Quantity, MaxAddQuantity)
	}
	if item.SKU == "" {
		return LineItem{}, invalidItem(item, "sku is required")
	}
	if item.UnitPrice.IsNegative() {
		return LineItem{}, invalidItem(item, "unit price must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return LineItem{}, ErrNotReady
	}

	for i := range c.items {
		if c.items[i].sameVariant(item) {
			c.items[i].Quantity += item.Quantity
			c.changed()
			return c.items[i], nil
		}
	}
	item.ID = uuid.NewString()
	c.items = append(c.items, item)
	c.changed()
	return item, nil
}

// Items returns a copy of the line items in display order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LineItem(nil), c.items...)
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Subtotal is Σ(unit price × quantity) at full precision.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotal()
}

// Tax is Subtotal × TaxRate.
func (c *Cart) Tax() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotal().Mul(TaxRate)
}

// Total is Subtotal + Tax.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := c.subtotal()
	return sub.Add(sub.Mul(TaxRate))
}

// ItemCount is Σ(quantity).
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemCount()
}

// Snapshot captures the cart and its derived values at one version.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current one. Delivery coalesces: a receiver that falls
// behind only sees the latest snapshot. The returned func unsubscribes and
// closes the channel. Once CloseSubscriptions has run, the channel is
// returned already closed.
func (c *Cart) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		ch := make(chan Snapshot)
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 1)
	ch <- c.snapshot()
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// SubscriberCount returns the number of open subscriptions.
func (c *Cart) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// CloseSubscriptions ends every open subscription and refuses new ones.
func (c *Cart) CloseSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Cart) unknown(itemID string) error {
	if c.policy == PolicyReject {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return nil
}

func (c *Cart) indexOf(itemID string) int {
	for i := range c.items {
		if c.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

func (c *Cart) itemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// changed must be called with c.mu held.
func (c *Cart) changed() {
	c.version++
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshot()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (c *Cart) snapshot() Snapshot {
	sub := c.subtotal()
	tax := sub.Mul(TaxRate)
	currency := DefaultCurrency
	if len(c.items) > 0 && c.items[0].Currency != "" {
		currency = c.items[0].Currency
	}
	return Snapshot{
		CartID:    c.id,
		State:     c.state,
		Version:   c.version,
		Items:     append([]LineItem(nil), c.items...),
		Subtotal:  sub,
		Tax:       tax,
		Total:     sub.Add(tax),
		ItemCount: c.itemCount(),
		Currency:  currency,
		LoadError: c.loadError,
	}
}
