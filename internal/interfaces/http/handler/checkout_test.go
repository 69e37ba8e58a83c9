package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/application/checkout"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/tests/testutil"
)

type seqNumbers struct{ n int }

func (s *seqNumbers) Next(context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("WN-H%04d", s.n), nil
}

type openerFunc func(ctx context.Context, o *order.Order) (*payment.Session, error)

func (f openerFunc) OpenSession(ctx context.Context, o *order.Order) (*payment.Session, error) {
	return f(ctx, o)
}

type checkoutFixture struct {
	products *testutil.MockProductRepository
	orders   *testutil.MockOrderRepository
	handler  *CheckoutHandler
}

func newCheckoutFixture(opener openerFunc) *checkoutFixture {
	f := &checkoutFixture{
		products: new(testutil.MockProductRepository),
		orders:   new(testutil.MockOrderRepository),
	}
	svc := checkout.NewService(checkout.ServiceConfig{
		Orders:   f.orders,
		Products: f.products,
		Coupons:  new(testutil.MockCouponRepository),
		Users:    new(testutil.MockUserRepository),
		Tx:       &testutil.InlineTx{},
		Numbers:  &seqNumbers{},
		Payments: opener,
		Delivery: testutil.DefaultDelivery(),
		Now:      func() time.Time { return testutil.FixedNow },
	})
	f.handler = NewCheckoutHandler(svc)
	return f
}

func checkoutBody(productID string, mode, provider string) map[string]any {
	return map[string]any{
		"items":        []map[string]any{{"product_id": productID, "quantity": 2}},
		"address":      testutil.TestAddress(),
		"payment_mode": mode,
		"provider":     provider,
	}
}

func TestCheckoutHandler_PlaceOrder(t *testing.T) {
	p := testutil.TestProduct(t, "ashwagandha", "500", 10)

	t.Run("requires a logged in customer", func(t *testing.T) {
		f := newCheckoutFixture(nil)
		testutil.RunHTTPTestCase(t, f.handler.PlaceOrder, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Path:           "/api/v1/orders",
			Body:           checkoutBody(p.ID.String(), "cod", ""),
			ExpectedStatus: http.StatusUnauthorized,
		})
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		f := newCheckoutFixture(nil)
		testutil.RunHTTPTestCase(t, f.handler.PlaceOrder, testutil.HTTPTestCase{
			Method: http.MethodPost,
			Path:   "/api/v1/orders",
			Body:   map[string]any{"items": []any{}, "payment_mode": "cod"},
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusBadRequest,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertErrorResponse(t, tc, "VALIDATION_ERROR")
			},
		})
	})

	t.Run("rejects an unknown payment mode", func(t *testing.T) {
		f := newCheckoutFixture(nil)
		testutil.RunHTTPTestCase(t, f.handler.PlaceOrder, testutil.HTTPTestCase{
			Method: http.MethodPost,
			Path:   "/api/v1/orders",
			Body:   checkoutBody(p.ID.String(), "upi", ""),
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusBadRequest,
		})
	})

	t.Run("cash on delivery is created", func(t *testing.T) {
		f := newCheckoutFixture(nil)
		f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.products.On("DecrementStock", mock.Anything, mock.Anything).Return(nil)
		f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)

		testutil.RunHTTPTestCase(t, f.handler.PlaceOrder, testutil.HTTPTestCase{
			Method: http.MethodPost,
			Path:   "/api/v1/orders",
			Body:   checkoutBody(p.ID.String(), "cod", ""),
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusCreated,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				o := data["order"].(map[string]any)
				assert.Equal(t, "WN-H0001", o["order_number"])
				assert.Equal(t, "Processing", o["status"])
				assert.Equal(t, float64(1030), o["final_price"])
				assert.Nil(t, data["payment"])
			},
		})
	})

	t.Run("online order carries the payment session", func(t *testing.T) {
		f := newCheckoutFixture(func(_ context.Context, o *order.Order) (*payment.Session, error) {
			return &payment.Session{
				Provider:       order.ProviderRazorpay,
				GatewayOrderID: "order_abc",
				KeyID:          "rzp_test",
				AmountPaise:    o.FinalPrice.Paise(),
				Currency:       "INR",
			}, nil
		})
		f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)

		testutil.RunHTTPTestCase(t, f.handler.PlaceOrder, testutil.HTTPTestCase{
			Method: http.MethodPost,
			Path:   "/api/v1/orders",
			Body:   checkoutBody(p.ID.String(), "online", "razorpay"),
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusCreated,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				assert.Equal(t, "Pending", data["order"].(map[string]any)["status"])
				sess := data["payment"].(map[string]any)
				assert.Equal(t, "order_abc", sess["gateway_order_id"])
				assert.Equal(t, float64(103000), sess["amount_paise"])
			},
		})
	})

	t.Run("gateway outage reports the saved order", func(t *testing.T) {
		f := newCheckoutFixture(func(context.Context, *order.Order) (*payment.Session, error) {
			return nil, shared.ErrExternalUnavailable
		})
		f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
		f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)

		testutil.RunHTTPTestCase(t, f.handler.PlaceOrder, testutil.HTTPTestCase{
			Method: http.MethodPost,
			Path:   "/api/v1/orders",
			Body:   checkoutBody(p.ID.String(), "online", "phonepe"),
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusServiceUnavailable,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				errObj := testutil.JSONResponse(t, tc)["error"].(map[string]any)
				assert.Equal(t, "EXTERNAL_SERVICE_UNAVAILABLE", errObj["code"])
				details := errObj["details"].(map[string]any)
				assert.Equal(t, "WN-H0001", details["order_number"])
				assert.NotEmpty(t, details["order_id"])
			},
		})
	})

	t.Run("stale client price", func(t *testing.T) {
		f := newCheckoutFixture(nil)
		f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)

		body := checkoutBody(p.ID.String(), "cod", "")
		body["items"] = []map[string]any{{"product_id": p.ID.String(), "quantity": 1, "price": "450"}}
		testutil.RunHTTPTestCase(t, f.handler.PlaceOrder, testutil.HTTPTestCase{
			Method: http.MethodPost,
			Path:   "/api/v1/orders",
			Body:   body,
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusConflict,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertErrorResponse(t, tc, "PRICE_CHANGED")
				f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			},
		})
	})
}

func TestPlaceOrderRequest_ToCommand(t *testing.T) {
	p := testutil.TestProduct(t, "triphala", "250", 3)
	addr := testutil.TestAddress()
	req := PlaceOrderRequest{
		Items:       []CheckoutItemRequest{{ProductID: p.ID, Variant: "100g", Quantity: 3}},
		Address:     &addr,
		PaymentMode: "online",
		Provider:    "phonepe",
		CouponCode:  "WELCOME",
	}

	cmd := req.toCommand()
	require.Len(t, cmd.Items, 1)
	assert.Equal(t, p.ID, cmd.Items[0].ProductID)
	assert.Equal(t, "100g", cmd.Items[0].Variant)
	assert.Equal(t, order.PaymentModeOnline, cmd.PaymentMode)
	assert.Equal(t, order.ProviderPhonePe, cmd.Provider)
	assert.Equal(t, "WELCOME", cmd.CouponCode)
	assert.Nil(t, cmd.AddressID)
}
