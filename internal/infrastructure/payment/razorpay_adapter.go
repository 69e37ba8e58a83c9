package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/infrastructure/retry"
)

const defaultRazorpayTimeout = 20 * time.Second

// RazorpayAdapter implements payment.Gateway on the Razorpay Orders API
type RazorpayAdapter struct {
	config    *RazorpayConfig
	transport http.RoundTripper
}

// RazorpayOption configures the adapter
type RazorpayOption func(*RazorpayAdapter)

// WithRazorpayTransport replaces the HTTP transport used by the SDK
func WithRazorpayTransport(rt http.RoundTripper) RazorpayOption {
	return func(a *RazorpayAdapter) {
		if rt != nil {
			a.transport = rt
		}
	}
}

// NewRazorpayAdapter creates a new Razorpay adapter
func NewRazorpayAdapter(cfg *RazorpayConfig, opts ...RazorpayOption) (*RazorpayAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRazorpayTimeout
	}
	a := &RazorpayAdapter{
		config:    cfg,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Provider returns the provider this gateway serves
func (a *RazorpayAdapter) Provider() order.PaymentProvider {
	return order.ProviderRazorpay
}

// CreateSession creates a Razorpay order the checkout widget pays into
func (a *RazorpayAdapter) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   req.Amount.Paise(),
		"currency": string(valueobject.INR),
		"receipt":  req.OrderNumber,
		"notes": map[string]interface{}{
			"order_id": req.OrderID.String(),
			"attempt":  strconv.Itoa(req.Attempt),
		},
	}
	body, err := a.call(ctx, func(c *razorpay.Client) (map[string]interface{}, error) {
		return c.Order.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: order id missing", payment.ErrGatewayInvalidResponse)
	}
	return &payment.Session{
		Provider:       order.ProviderRazorpay,
		GatewayOrderID: id,
		KeyID:          a.config.KeyID,
		AmountPaise:    req.Amount.Paise(),
		Currency:       string(valueobject.INR),
	}, nil
}

// FetchStatus asks Razorpay for the payment state. A payment id must come
// with its checkout signature; without one the order's payments are inspected
func (a *RazorpayAdapter) FetchStatus(ctx context.Context, query payment.StatusQuery) (*payment.StatusResult, error) {
	if query.GatewayOrderID == "" {
		return nil, fmt.Errorf("%w: razorpay order id is required", payment.ErrInvalidSessionRequest)
	}
	if query.Signature != "" || query.PaymentID != "" {
		if !a.VerifyPaymentSignature(query.GatewayOrderID, query.PaymentID, query.Signature) {
			return nil, payment.ErrInvalidSignature
		}
		return a.fetchPayment(ctx, query.GatewayOrderID, query.PaymentID)
	}
	return a.fetchOrderPayments(ctx, query.GatewayOrderID)
}

// VerifyPaymentSignature checks HMAC_SHA256(orderID|paymentID, keySecret)
func (a *RazorpayAdapter) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return verifyHexHMAC([]byte(orderID+"|"+paymentID), a.config.KeySecret, signature)
}

// ParseWebhook verifies X-Razorpay-Signature and decodes payment events
func (a *RazorpayAdapter) ParseWebhook(body []byte, signature string) (*payment.WebhookEvent, error) {
	if a.config.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not set", payment.ErrInvalidConfig)
	}
	if !verifyHexHMAC(body, a.config.WebhookSecret, signature) {
		return nil, payment.ErrInvalidSignature
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}
	p := hook.Payload.Payment.Entity
	event := &payment.WebhookEvent{
		ID:             hook.Event + ":" + p.ID,
		Type:           hook.Event,
		GatewayOrderID: p.OrderID,
		PaymentID:      p.ID,
		State:          payment.StatePending,
	}
	switch hook.Event {
	case RazorpayEventPaymentCaptured, RazorpayEventOrderPaid:
		event.State = payment.StateCompleted
	case RazorpayEventPaymentFailed:
		event.State = payment.StateFailed
	}
	return event, nil
}

func (a *RazorpayAdapter) fetchPayment(ctx context.Context, orderID, paymentID string) (*payment.StatusResult, error) {
	body, err := a.call(ctx, func(c *razorpay.Client) (map[string]interface{}, error) {
		return c.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	if got, _ := body["order_id"].(string); got != "" && got != orderID {
		return nil, fmt.Errorf("%w: payment belongs to another order", payment.ErrInvalidSignature)
	}
	return razorpayResult(body), nil
}

// fetchOrderPayments settles on a captured payment if any, failed when every
// attempt failed, pending otherwise
func (a *RazorpayAdapter) fetchOrderPayments(ctx context.Context, orderID string) (*payment.StatusResult, error) {
	body, err := a.call(ctx, func(c *razorpay.Client) (map[string]interface{}, error) {
		return c.Order.Payments(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	items, _ := body["items"].([]interface{})
	result := &payment.StatusResult{State: payment.StatePending, GatewayStatus: razorpayStatusCreated}
	failed := 0
	for _, it := range items {
		p, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		r := razorpayResult(p)
		switch r.State {
		case payment.StateCompleted:
			return r, nil
		case payment.StateFailed:
			failed++
			result = r
		}
	}
	if len(items) == 0 || failed < len(items) {
		result.State = payment.StatePending
	}
	return result, nil
}

// call runs one SDK request on a client bound to ctx. The SDK has no context
// support, so the transport carries it and records the HTTP status
func (a *RazorpayAdapter) call(ctx context.Context, fn func(*razorpay.Client) (map[string]interface{}, error)) (map[string]interface{}, error) {
	rt := &contextTransport{ctx: ctx, base: a.transport}
	client := razorpay.NewClient(a.config.KeyID, a.config.KeySecret)
	client.Order.Request.HTTPClient = &http.Client{Transport: rt, Timeout: a.config.Timeout}
	if a.config.BaseURL != "" {
		client.Order.Request.BaseURL = a.config.BaseURL
	}

	body, err := fn(client)
	switch {
	case err == nil:
		return body, nil
	case rt.status == 0 && rt.err != nil:
		return nil, fmt.Errorf("%w: razorpay: %w", payment.ErrGatewayUnavailable, rt.err)
	case rt.status == 0 || isRetryableStatus(rt.status):
		return nil, retry.ForStatus(fmt.Errorf("%w: razorpay: %v", payment.ErrGatewayUnavailable, err), rt.status)
	}
	return nil, fmt.Errorf("%w: razorpay: %v", payment.ErrGatewayRequestFailed, err)
}

func razorpayResult(p map[string]interface{}) *payment.StatusResult {
	status, _ := p["status"].(string)
	id, _ := p["id"].(string)
	result := &payment.StatusResult{
		State:         mapRazorpayStatus(status),
		PaymentID:     id,
		GatewayStatus: status,
	}
	if amount, ok := p["amount"].(float64); ok {
		m := valueobject.FromPaise(int64(amount))
		result.Amount = &m
	}
	return result
}

func mapRazorpayStatus(status string) payment.State {
	switch status {
	case razorpayStatusCaptured:
		return payment.StateCompleted
	case razorpayStatusFailed:
		return payment.StateFailed
	default:
		return payment.StatePending
	}
}

func verifyHexHMAC(message []byte, secret, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), got)
}

// contextTransport binds requests to a context and remembers the last status
type contextTransport struct {
	ctx    context.Context
	base   http.RoundTripper
	status int
	err    error
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if resp != nil {
		t.status = resp.StatusCode
	}
	t.err = err
	return resp, err
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

var (
	_ payment.Gateway         = (*RazorpayAdapter)(nil)
	_ payment.WebhookVerifier = (*RazorpayAdapter)(nil)
)
