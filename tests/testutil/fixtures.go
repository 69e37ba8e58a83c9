package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// FixedNow is the clock used by fixtures.
var FixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

// TestAddress returns a complete delivery address.
func TestAddress() valueobject.PostalAddress {
	return valueobject.PostalAddress{
		Name:    "Asha Rao",
		Phone:   "9876543210",
		Street:  "12 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560001",
		Type:    valueobject.AddressTypeHome,
	}
}

// TestProduct returns an active product with stock.
func TestProduct(t *testing.T, slug, price string, stock int, variants ...string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(slug, "Product "+slug, valueobject.MustINR(price))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	p.Variants = variants
	p.WeightGrams = 250
	return p
}

// TestItem returns an order line.
func TestItem(price string, qty int) order.Item {
	return order.Item{
		ProductID: uuid.New(),
		Title:     "Ashwagandha",
		Quantity:  qty,
		Price:     valueobject.MustINR(price),
	}
}

// DefaultDelivery is the flat 30 rupee policy with free delivery disabled.
func DefaultDelivery() order.DeliveryPolicy {
	return order.DeliveryPolicy{Flat: valueobject.NewINRFromInt(30), FreeAbove: valueobject.ZeroINR()}
}

// NewTestOrder places an order for TestUserID with the given lines.
func NewTestOrder(t *testing.T, mode order.PaymentMode, provider order.PaymentProvider, items ...order.Item) *order.Order {
	t.Helper()
	if len(items) == 0 {
		items = []order.Item{TestItem("500", 2)}
	}
	o, err := order.NewOrder(order.NewOrderParams{
		OrderNumber:     "WN-" + uuid.NewString()[:8],
		UserID:          TestUserID(),
		Items:           items,
		ShippingAddress: TestAddress(),
		PaymentMode:     mode,
		PaymentProvider: provider,
		Delivery:        DefaultDelivery(),
		Now:             FixedNow,
	})
	require.NoError(t, err)
	return o
}

// NewPaidOrder returns an online order whose payment completed.
func NewPaidOrder(t *testing.T, provider order.PaymentProvider) *order.Order {
	t.Helper()
	o := NewTestOrder(t, order.PaymentModeOnline, provider)
	var err error
	switch provider {
	case order.ProviderPhonePe:
		err = o.AttachPhonePeTransaction(o.OrderNumber+"_1", FixedNow)
	default:
		err = o.AttachRazorpayOrder("order_test123", FixedNow)
	}
	require.NoError(t, err)
	_, err = o.CompletePayment("pay_test123", "", FixedNow)
	require.NoError(t, err)
	o.MarkStockCommitted()
	return o
}
