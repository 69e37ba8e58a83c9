package cart

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestCart() (*Cart, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.Now)), clk
}

func snapshot(price int64) ProductSnapshot {
	return ProductSnapshot{
		ID:    uuid.New(),
		Title: "Moringa Powder",
		Price: valueobject.NewINRFromInt(price),
		Stock: 10,
	}
}

func assertTotals(t *testing.T, c *Cart) {
	t.Helper()
	want := valueobject.ZeroINR()
	for _, item := range c.Items {
		want = want.Add(item.Price.MulInt(item.Quantity))
	}
	assert.True(t, c.Total.Equals(want), "total %s want %s", c.Total, want)
	assert.True(t, c.TotalPrice.Equals(c.Total))
}

func TestCart_AddToCart(t *testing.T) {
	t.Run("same product and variant merges", func(t *testing.T) {
		c, _ := newTestCart()
		p := snapshot(250)

		require.NoError(t, c.AddToCart(p, 1, "200g"))
		require.NoError(t, c.AddToCart(p, 2, "200g"))

		require.Len(t, c.Items, 1)
		assert.Equal(t, 3, c.Items[0].Quantity)
		assert.Equal(t, "750.00", c.Total.String())
		assertTotals(t, c)
	})

	t.Run("different variant appends", func(t *testing.T) {
		c, _ := newTestCart()
		p := snapshot(250)

		require.NoError(t, c.AddToCart(p, 1, "200g"))
		require.NoError(t, c.AddToCart(p, 1, "500g"))

		assert.Len(t, c.Items, 2)
		assert.Equal(t, 2, c.ItemCount())
		assertTotals(t, c)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		c, _ := newTestCart()
		assert.ErrorIs(t, c.AddToCart(snapshot(100), 0, ""), ErrInvalidQuantity)
		assert.True(t, c.IsEmpty())
	})

	t.Run("no upper bound on quantity", func(t *testing.T) {
		c, _ := newTestCart()
		p := snapshot(10)
		require.NoError(t, c.AddToCart(p, 500, ""))
		assert.Equal(t, 500, c.Items[0].Quantity)
		assert.Equal(t, 10, c.Items[0].Stock)
	})
}

func TestCart_TotalAfterEveryMutation(t *testing.T) {
	c, _ := newTestCart()
	a, b := snapshot(499), snapshot(120)

	steps := []func() error{
		func() error { return c.AddToCart(a, 2, "") },
		func() error { return c.AddToCart(b, 3, "mint") },
		func() error { return c.UpdateQuantity(a.ID, "", 5) },
		func() error { return c.ApplyCoupon("WELL50", valueobject.NewINRFromInt(50)) },
		func() error { return c.RemoveFromCart(b.ID, "mint") },
		func() error { c.RemoveCoupon(); return nil },
		func() error { return c.UpdateQuantity(a.ID, "", 0) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assertTotals(t, c)
	}
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total.IsZero())
}

func TestCart_UpdateAndRemove(t *testing.T) {
	c, _ := newTestCart()
	p := snapshot(100)
	require.NoError(t, c.AddToCart(p, 1, "small"))

	assert.ErrorIs(t, c.UpdateQuantity(p.ID, "large", 2), ErrItemNotInCart)
	assert.ErrorIs(t, c.RemoveFromCart(uuid.New(), "small"), ErrItemNotInCart)

	require.NoError(t, c.UpdateQuantity(p.ID, "small", 4))
	assert.Equal(t, "400.00", c.Total.String())
}

func TestCart_Coupon(t *testing.T) {
	c, _ := newTestCart()
	require.NoError(t, c.AddToCart(snapshot(999), 1, ""))
	require.NoError(t, c.ApplyCoupon("WELL100", valueobject.NewINRFromInt(100)))

	assert.Equal(t, "WELL100", c.CouponCode)
	assert.Equal(t, "999.00", c.Total.String())
	assert.Equal(t, "899.00", c.Payable().String())

	assert.Error(t, c.ApplyCoupon("", valueobject.NewINRFromInt(1)))
	assert.Error(t, c.ApplyCoupon("NEG", valueobject.NewINRFromInt(-1)))

	c.RemoveCoupon()
	assert.Empty(t, c.CouponCode)
	assert.True(t, c.Discount.IsZero())
}

func TestCart_Expiry(t *testing.T) {
	c, clk := newTestCart()
	require.NoError(t, c.AddToCart(snapshot(100), 1, ""))
	assert.Equal(t, clk.now.Add(DefaultTTL), c.ExpiresAt)

	clk.now = clk.now.Add(24 * time.Hour)
	require.NoError(t, c.UpdateQuantity(c.Items[0].ProductID, "", 2))
	assert.Equal(t, clk.now.Add(DefaultTTL), c.ExpiresAt, "every mutation extends expiry")
	assert.Equal(t, DefaultTTL, c.TTLRemaining())
}

func TestHydrate(t *testing.T) {
	c, clk := newTestCart()
	require.NoError(t, c.AddToCart(snapshot(300), 2, ""))

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	var stored Cart
	require.NoError(t, json.Unmarshal(raw, &stored))

	t.Run("fresh snapshot restores lines", func(t *testing.T) {
		clk.now = clk.now.Add(6 * 24 * time.Hour)
		h := Hydrate(&stored, WithClock(clk.Now))
		require.Len(t, h.Items, 1)
		assert.Equal(t, "600.00", h.Total.String())
		assertTotals(t, h)
	})

	t.Run("expired snapshot hydrates empty", func(t *testing.T) {
		clk.now = stored.ExpiresAt.Add(time.Second)
		h := Hydrate(&stored, WithClock(clk.Now))
		assert.True(t, h.IsEmpty())
		assert.True(t, h.Total.IsZero())
	})

	t.Run("missing expiry hydrates empty", func(t *testing.T) {
		noExpiry := stored
		noExpiry.ExpiresAt = time.Time{}
		assert.True(t, Hydrate(&noExpiry, WithClock(clk.Now)).IsEmpty())
		assert.True(t, Hydrate(nil).IsEmpty())
	})
}

func TestCart_JSONCarriesLegacyAlias(t *testing.T) {
	c, _ := newTestCart()
	require.NoError(t, c.AddToCart(snapshot(150), 2, ""))

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, 300.0, m["total"])
	assert.Equal(t, 300.0, m["totalPrice"])
	assert.Contains(t, m, "expiry")
}
