package export

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

func sampleOrder(t *testing.T, number string, mode order.PaymentMode) order.Order {
	t.Helper()
	o, err := order.NewOrder(order.NewOrderParams{
		OrderNumber: number,
		UserID:      uuid.New(),
		Items: []order.Item{
			{ProductID: uuid.New(), Title: "Ashwagandha", Variant: "60 capsules", Quantity: 2, Price: valueobject.MustINR("500")},
		},
		ShippingAddress: valueobject.PostalAddress{
			Name: "Asha Rao", Phone: "9876543210", Street: "12 MG Road", City: "Bengaluru",
			State: "Karnataka", Pincode: "560001", Type: valueobject.AddressTypeHome,
		},
		PaymentMode: mode,
		Delivery:    order.DeliveryPolicy{Flat: valueobject.NewINRFromInt(30), FreeAbove: valueobject.ZeroINR()},
		Now:         time.Date(2026, 3, 14, 5, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return *o
}

func TestOrderWorkbook_Orders(t *testing.T) {
	w := NewOrderWorkbook()
	w.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	cancelled := sampleOrder(t, "WN-2", order.PaymentModeCOD)
	require.NoError(t, cancelled.UpdateStatus(order.StatusCancelled, "", time.Now()))
	orders := []order.Order{sampleOrder(t, "WN-1", order.PaymentModeCOD), cancelled}

	data, err := w.Orders(context.Background(), orders)
	require.NoError(t, err)

	file, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 2)

	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Order Number", sheet.Rows[0].Cells[0].Value)
	row := sheet.Rows[1].Cells
	assert.Equal(t, "WN-1", row[0].Value)
	assert.Equal(t, "Ashwagandha (60 capsules) x2", row[7].Value)
	assert.Equal(t, "2", row[8].Value)
	assert.Equal(t, "1030", row[13].Value)
	assert.Equal(t, "COD", row[14].Value)

	summary := file.Sheets[1]
	assert.Equal(t, "₹1,030.00", summary.Rows[2].Cells[1].Value)
	assert.Equal(t, "orders-20260314-1530.xlsx", w.Filename())
}

func TestOrderWorkbook_FormatINR(t *testing.T) {
	w := NewOrderWorkbook()
	assert.Equal(t, "₹1,030.00", w.FormatINR(decimal.NewFromInt(1030)))
	assert.Equal(t, "₹0.00", w.FormatINR(decimal.Zero))
}

func TestOrderWorkbook_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOrderWorkbook().Orders(ctx, []order.Order{sampleOrder(t, "WN-3", order.PaymentModeCOD)})
	assert.ErrorIs(t, err, context.Canceled)
}
