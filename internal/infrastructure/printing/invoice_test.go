package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

type fakeRenderer struct {
	last *RenderRequest
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &RenderResult{PDFData: []byte("%PDF-1.7 fake"), PageCount: 1}, nil
}

func (f *fakeRenderer) Close() error { return nil }

var invoiceNow = time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)

func testSeller() Seller {
	return Seller{
		Name:    "Wellnest Naturals",
		GSTIN:   "29ABCDE1234F1Z5",
		Address: "Indiranagar, Bengaluru 560038",
		Email:   "care@wellnest.in",
	}
}

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.NewOrderParams{
		OrderNumber: "WN-a1b2c3d4",
		UserID:      uuid.New(),
		Items: []order.Item{
			{ProductID: uuid.New(), Title: "Ashwagandha Capsules", Variant: "60 capsules", Quantity: 2, Price: valueobject.NewINRFromInt(500)},
			{ProductID: uuid.New(), Title: "Triphala Churna", Quantity: 1, Price: valueobject.NewINRFromInt(249)},
		},
		Discount:   valueobject.NewINRFromInt(100),
		CouponCode: "WELL100",
		ShippingAddress: valueobject.PostalAddress{
			Name: "Asha Rao", Phone: "9876543210", Street: "12 MG Road",
			City: "Bengaluru", State: "Karnataka", Pincode: "560001",
		},
		PaymentMode: order.PaymentModeCOD,
		Delivery:    order.DeliveryPolicy{Flat: valueobject.NewINRFromInt(30)},
		Now:         invoiceNow,
	})
	require.NoError(t, err)
	return o
}

func TestNewInvoiceView(t *testing.T) {
	o := testOrder(t)
	view := NewInvoiceView(o, testSeller(), invoiceNow)

	assert.Equal(t, "INV-a1b2c3d4", view.InvoiceNumber)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "1000.00", view.Lines[0].Amount.String())
	assert.Equal(t, "1249.00", view.Subtotal.String())
	assert.Equal(t, "1179.00", view.Total.String())
	assert.Equal(t, "Cash on Delivery", view.PaymentMethod)
	assert.Equal(t, "Asha Rao", view.ShipTo[0])
}

func TestInvoicePrinter_RenderHTML(t *testing.T) {
	p, err := NewInvoicePrinter(&fakeRenderer{}, testSeller(), WithClock(func() time.Time { return invoiceNow }))
	require.NoError(t, err)

	html, err := p.RenderHTML(context.Background(), testOrder(t))
	require.NoError(t, err)

	for _, want := range []string{
		"Wellnest Naturals",
		"GSTIN: 29ABCDE1234F1Z5",
		"INV-a1b2c3d4",
		"14 Mar 2026",
		"Ashwagandha Capsules",
		"60 capsules",
		"₹1,249.00",
		"Discount (WELL100)",
		"-₹100.00",
		"₹30.00",
		"₹1,179.00",
		"Rupees One Thousand One Hundred Seventy Nine Only",
		"Cash on Delivery",
		"560001",
	} {
		assert.Contains(t, html, want)
	}
}

func TestInvoicePrinter_FreeDelivery(t *testing.T) {
	o := testOrder(t)
	o.FinalPrice = o.FinalPrice.Sub(o.DeliveryCharge)
	o.DeliveryCharge = valueobject.ZeroINR()

	p, err := NewInvoicePrinter(&fakeRenderer{}, testSeller())
	require.NoError(t, err)
	html, err := p.RenderHTML(context.Background(), o)
	require.NoError(t, err)
	assert.Contains(t, html, "Free")
}

func TestInvoicePrinter_Print(t *testing.T) {
	r := &fakeRenderer{}
	p, err := NewInvoicePrinter(r, testSeller(), WithPageSize(PageSizeA5))
	require.NoError(t, err)

	pdf, err := p.Print(context.Background(), testOrder(t))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(pdf))
	require.NotNil(t, r.last)
	assert.Equal(t, PageSizeA5, r.last.PageSize)
	assert.Equal(t, "Invoice INV-a1b2c3d4", r.last.Title)

	r.err = NewRenderError(ErrCodeRenderTimeout, "timed out", nil)
	_, err = p.Print(context.Background(), testOrder(t))
	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeRenderTimeout, re.Code)
}
