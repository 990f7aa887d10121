package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
)

func fixtureItems() []domain.LineItem {
	return []domain.LineItem{
		{ID: "1", SKU: "MH01", Name: "Hero Hoodie", UnitPrice: decimal.RequireFromString("54.00"), Currency: "USD", Color: "Black", Size: "M", Quantity: 1},
		{ID: "2", SKU: "MJ01", Name: "Stellar Jacket", UnitPrice: decimal.RequireFromString("75.00"), Currency: "USD", Color: "Navy", Size: "L", Quantity: 2},
	}
}

func readyCart(t *testing.T, policy domain.UnknownItemPolicy) *domain.Cart {
	t.Helper()
	c := domain.NewCart("cart-1", policy)
	require.NoError(t, c.Load(fixtureItems()))
	return c
}

func quantityOf(t *testing.T, c *domain.Cart, id string) int {
	t.Helper()
	for _, it := range c.Items() {
		if it.ID == id {
			return it.Quantity
		}
	}
	t.Fatalf("item %s not in cart", id)
	return 0
}

func TestCart_DerivedValues(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)

	assert.Equal(t, "204.00", c.Subtotal().StringFixed(2))
	assert.Equal(t, "16.83", c.Tax().StringFixed(2))
	assert.Equal(t, "220.83", c.Total().StringFixed(2))
	assert.Equal(t, 3, c.ItemCount())
}

func TestCart_EmptyCart(t *testing.T) {
	c := domain.NewCart("empty", domain.PolicyIgnore)
	require.NoError(t, c.Load(nil))

	snap := c.Snapshot()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, domain.StateReady, snap.State)
	assert.Equal(t, "0.00 USD", snap.SubtotalDisplay())
	assert.Equal(t, "0.00 USD", snap.TaxDisplay())
	assert.Equal(t, "0.00 USD", snap.TotalDisplay())
	assert.Equal(t, 0, snap.ItemCount)
}

func TestCart_UpdateQuantity(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)

	for _, q := range []int{1, 2, 7, 100} {
		require.NoError(t, c.UpdateQuantity("1", q))
		assert.Equal(t, q, quantityOf(t, c, "1"))
	}
}

func TestCart_UpdateQuantityBelowOneIsNoop(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)
	before := c.Snapshot()

	for _, q := range []int{0, -1, -50} {
		require.NoError(t, c.UpdateQuantity("1", q))
		assert.Equal(t, 1, quantityOf(t, c, "1"))
	}

	after := c.Snapshot()
	assert.True(t, before.Total.Equal(after.Total))
	assert.Equal(t, before.ItemCount, after.ItemCount)
	assert.Equal(t, before.Version, after.Version)
}

func TestCart_RemoveItem(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)

	require.NoError(t, c.RemoveItem("2"))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, 1, c.ItemCount())
	assert.Equal(t, "54.00", c.Subtotal().StringFixed(2))

	require.NoError(t, c.RemoveItem("2"))
	assert.Len(t, c.Items(), 1)
}

func TestCart_LoadIsIdempotent(t *testing.T) {
	c := domain.NewCart("cart-1", domain.PolicyIgnore)
	require.NoError(t, c.Load(fixtureItems()))
	first := c.Snapshot()
	require.NoError(t, c.Load(fixtureItems()))
	second := c.Snapshot()

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.Tax.Equal(second.Tax))
	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, first.ItemCount, second.ItemCount)
	assert.Equal(t, first.Items, second.Items)
}

func TestCart_LoadRejectsInvalidBatch(t *testing.T) {
	tests := map[string]domain.LineItem{
		"zero quantity":  {ID: "x", SKU: "S", Quantity: 0},
		"negative price": {ID: "x", SKU: "S", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)},
		"missing id":     {SKU: "S", Quantity: 1},
	}
	for name, bad := range tests {
		t.Run(name, func(t *testing.T) {
			c := domain.NewCart("cart-1", domain.PolicyIgnore)
			err := c.Load(append(fixtureItems(), bad))
			require.ErrorIs(t, err, domain.ErrInvalidItem)
			assert.Equal(t, domain.StateLoading, c.State())
			assert.True(t, c.IsEmpty())
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		c := domain.NewCart("cart-1", domain.PolicyIgnore)
		items := fixtureItems()
		items[1].ID = items[0].ID
		require.ErrorIs(t, c.Load(items), domain.ErrInvalidItem)
	})
}

func TestCart_MutationsRequireReady(t *testing.T) {
	c := domain.NewCart("cart-1", domain.PolicyIgnore)

	assert.ErrorIs(t, c.UpdateQuantity("1", 2), domain.ErrNotReady)
	assert.ErrorIs(t, c.RemoveItem("1"), domain.ErrNotReady)
	_, err := c.AddItem(domain.LineItem{SKU: "MH01", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Equal(t, domain.StateLoading, c.State())
}

func TestCart_LoadFailureKeepsLoading(t *testing.T) {
	c := domain.NewCart("cart-1", domain.PolicyIgnore)
	c.MarkLoadFailed(assert.AnError)

	snap := c.Snapshot()
	assert.Equal(t, domain.StateLoading, snap.State)
	assert.Equal(t, assert.AnError.Error(), snap.LoadError)

	require.NoError(t, c.Load(fixtureItems()))
	assert.Empty(t, c.Snapshot().LoadError)

	c.MarkLoadFailed(assert.AnError)
	assert.Empty(t, c.Snapshot().LoadError, "ready carts ignore late failures")
}

func TestCart_UnknownItemPolicy(t *testing.T) {
	ignore := readyCart(t, domain.PolicyIgnore)
	assert.NoError(t, ignore.UpdateQuantity("missing", 3))
	assert.NoError(t, ignore.RemoveItem("missing"))

	reject := readyCart(t, domain.PolicyReject)
	assert.ErrorIs(t, reject.UpdateQuantity("missing", 3), domain.ErrItemNotFound)
	assert.ErrorIs(t, reject.RemoveItem("missing"), domain.ErrItemNotFound)
	assert.ErrorIs(t, reject.UpdateQuantity("1", 0), domain.ErrInvalidQuantity)
	assert.Equal(t, 1, quantityOf(t, reject, "1"))
}

func TestParsePolicy(t *testing.T) {
	p, err := domain.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyIgnore, p)

	p, err = domain.ParsePolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyReject, p)

	_, err = domain.ParsePolicy("explode")
	assert.Error(t, err)
}

func TestCart_AddItem(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)

	merged, err := c.AddItem(domain.LineItem{SKU: "MH01", Name: "Hero Hoodie", UnitPrice: decimal.RequireFromString("54.00"), Currency: "USD", Color: "Black", Size: "M", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "1", merged.ID)
	assert.Equal(t, 3, merged.Quantity)

	added, err := c.AddItem(domain.LineItem{SKU: "MH01", Name: "Hero Hoodie", UnitPrice: decimal.RequireFromString("54.00"), Currency: "USD", Color: "Red", Size: "XL", Quantity: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Len(t, c.Items(), 3)
	assert.Equal(t, 6, c.ItemCount())

	for _, q := range []int{0, domain.MaxAddQuantity + 1} {
		_, err := c.AddItem(domain.LineItem{SKU: "MH01", Quantity: q})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}
	_, err = c.AddItem(domain.LineItem{Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidItem)
}

func TestCart_ItemsIsACopy(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)
	items := c.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, quantityOf(t, c, "1"))
}

func TestCart_Subscribe(t *testing.T) {
	c := domain.NewCart("cart-1", domain.PolicyIgnore)
	ch, cancel := c.Subscribe()
	defer cancel()

	initial := <-ch
	assert.Equal(t, domain.StateLoading, initial.State)

	require.NoError(t, c.Load(fixtureItems()))
	require.NoError(t, c.UpdateQuantity("1", 4))

	// Delivery coalesces, so only the latest change is pending.
	latest := <-ch
	assert.Equal(t, domain.StateReady, latest.State)
	assert.Equal(t, 6, latest.ItemCount)
	assert.Equal(t, c.Version(), latest.Version)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestCart_RestoreFromSnapshot(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)
	require.NoError(t, c.UpdateQuantity("2", 5))

	restored := domain.Restore(c.Snapshot(), domain.PolicyIgnore)
	assert.Equal(t, c.ID(), restored.ID())
	assert.Equal(t, domain.StateReady, restored.State())
	assert.Equal(t, c.Version(), restored.Version())
	assert.True(t, c.Total().Equal(restored.Total()))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "54.00 USD", domain.FormatAmount(decimal.NewFromInt(54), "USD"))
	assert.Equal(t, "16.83 USD", domain.FormatAmount(decimal.RequireFromString("16.830"), "USD"))
	assert.Equal(t, "0.10 EUR", domain.FormatAmount(decimal.RequireFromString("0.0951"), "EUR"))
}

func TestCart_SubscribeAfterClose(t *testing.T) {
	c := readyCart(t, domain.PolicyIgnore)
	ch, cancel := c.Subscribe()
	defer cancel()
	assert.Equal(t, 1, c.SubscriberCount())

	c.CloseSubscriptions()
	assert.Equal(t, 0, c.SubscriberCount())

	late, lateCancel := c.Subscribe()
	defer lateCancel()
	_, open := <-late
	assert.False(t, open, "subscriptions after close end immediately")

	// drain the snapshot buffered before close
	for range ch {
	}
}
