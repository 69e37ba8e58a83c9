package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	paymentapp "github.com/wellnest/backend/internal/application/payment"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/tests/testutil"
)

type paymentFixture struct {
	orders   *testutil.MockOrderRepository
	razorpay *testutil.MockGateway
	handler  *PaymentHandler
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		orders:   new(testutil.MockOrderRepository),
		razorpay: testutil.NewMockGateway(order.ProviderRazorpay),
	}
	svc := paymentapp.NewService(paymentapp.ServiceConfig{
		Orders:   f.orders,
		Products: new(testutil.MockProductRepository),
		Tx:       &testutil.InlineTx{},
		Gateways: payment.NewRegistry(f.razorpay),
	})
	f.handler = NewPaymentHandler(svc)
	return f
}

func withOrderParam(id uuid.UUID) func(t *testing.T, tc *testutil.TestContext) {
	return func(t *testing.T, tc *testutil.TestContext) {
		tc.Context.Params = gin.Params{{Key: "id", Value: id.String()}}
		tc.SetUser(testutil.TestUserID(), "customer")
	}
}

func TestPaymentHandler_Verify(t *testing.T) {
	t.Run("anonymous caller", func(t *testing.T) {
		f := newPaymentFixture()
		testutil.RunHTTPTestCase(t, f.handler.Verify, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           map[string]string{"razorpay_payment_id": "pay_1", "razorpay_signature": "sig"},
			ExpectedStatus: http.StatusUnauthorized,
		})
	})

	t.Run("missing signature", func(t *testing.T) {
		f := newPaymentFixture()
		testutil.RunHTTPTestCase(t, f.handler.Verify, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           map[string]string{"razorpay_payment_id": "pay_1"},
			Setup:          withOrderParam(uuid.New()),
			ExpectedStatus: http.StatusBadRequest,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertErrorResponse(t, tc, "VALIDATION_ERROR")
			},
		})
	})

	t.Run("someone else's order is not found", func(t *testing.T) {
		f := newPaymentFixture()
		o := testutil.NewTestOrder(t, order.PaymentModeOnline, order.ProviderRazorpay)
		o.UserID = uuid.New()
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		testutil.RunHTTPTestCase(t, f.handler.Verify, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           map[string]string{"razorpay_payment_id": "pay_1", "razorpay_signature": "sig"},
			Setup:          withOrderParam(o.ID),
			ExpectedStatus: http.StatusNotFound,
		})
	})

	t.Run("cash on delivery order has nothing to verify", func(t *testing.T) {
		f := newPaymentFixture()
		o := testutil.NewTestOrder(t, order.PaymentModeCOD, "")
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		testutil.RunHTTPTestCase(t, f.handler.Verify, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           map[string]string{"razorpay_payment_id": "pay_1", "razorpay_signature": "sig"},
			Setup:          withOrderParam(o.ID),
			ExpectedStatus: http.StatusBadRequest,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertErrorResponse(t, tc, "INVALID_PAYMENT_MODE")
			},
		})
	})
}

func TestPaymentHandler_Status_BadID(t *testing.T) {
	f := newPaymentFixture()
	testutil.RunHTTPTestCase(t, f.handler.Status, testutil.HTTPTestCase{
		Setup: func(t *testing.T, tc *testutil.TestContext) {
			tc.Context.Params = gin.Params{{Key: "id", Value: "42"}}
			tc.SetUser(testutil.TestUserID(), "customer")
		},
		ExpectedStatus: http.StatusBadRequest,
	})
}

func TestPaymentHandler_RazorpayWebhook(t *testing.T) {
	event := map[string]any{"event": "payment.captured"}

	t.Run("missing signature header", func(t *testing.T) {
		f := newPaymentFixture()
		testutil.RunHTTPTestCase(t, f.handler.RazorpayWebhook, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           event,
			ExpectedStatus: http.StatusBadRequest,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertErrorResponse(t, tc, "INVALID_SIGNATURE")
				f.razorpay.AssertNotCalled(t, "ParseWebhook", mock.Anything, mock.Anything)
			},
		})
	})

	t.Run("forged signature", func(t *testing.T) {
		f := newPaymentFixture()
		f.razorpay.On("ParseWebhook", mock.Anything, "forged").Return(nil, payment.ErrInvalidSignature)

		testutil.RunHTTPTestCase(t, f.handler.RazorpayWebhook, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           event,
			Headers:        map[string]string{"X-Razorpay-Signature": "forged"},
			ExpectedStatus: http.StatusBadRequest,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				testutil.AssertErrorResponse(t, tc, "INVALID_SIGNATURE")
			},
		})
	})

	t.Run("non final event is acknowledged", func(t *testing.T) {
		f := newPaymentFixture()
		f.razorpay.On("ParseWebhook", mock.Anything, "good").Return(&payment.WebhookEvent{
			ID: "evt_1", Type: "payment.authorized", GatewayOrderID: "order_1", State: payment.StatePending,
		}, nil)

		testutil.RunHTTPTestCase(t, f.handler.RazorpayWebhook, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           event,
			Headers:        map[string]string{"X-Razorpay-Signature": "good"},
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				assert.Equal(t, true, data["received"])
				assert.Equal(t, true, data["ignored"])
				assert.Equal(t, "evt_1", data["event_id"])
			},
		})
	})

	t.Run("event for an unknown order is ignored", func(t *testing.T) {
		f := newPaymentFixture()
		f.razorpay.On("ParseWebhook", mock.Anything, "good").Return(&payment.WebhookEvent{
			ID: "evt_2", Type: "payment.captured", GatewayOrderID: "order_missing", PaymentID: "pay_9", State: payment.StateCompleted,
		}, nil)
		f.orders.On("FindByGatewayReference", mock.Anything, order.ProviderRazorpay, "order_missing").Return(nil, shared.ErrNotFound)

		testutil.RunHTTPTestCase(t, f.handler.RazorpayWebhook, testutil.HTTPTestCase{
			Method:         http.MethodPost,
			Body:           event,
			Headers:        map[string]string{"X-Razorpay-Signature": "good"},
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				assert.Equal(t, true, data["ignored"])
			},
		})
	})
}

func TestPaymentHandler_PhonePeCallback_Unconfigured(t *testing.T) {
	f := newPaymentFixture()
	testutil.RunHTTPTestCase(t, f.handler.PhonePeCallback, testutil.HTTPTestCase{
		Method:         http.MethodPost,
		Body:           map[string]string{"response": "e30="},
		Headers:        map[string]string{"X-VERIFY": "abc###1"},
		ExpectedStatus: http.StatusServiceUnavailable,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			testutil.AssertErrorResponse(t, tc, "PAYMENT_PROVIDER_UNAVAILABLE")
		},
	})
}
