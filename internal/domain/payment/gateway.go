package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ---------------------------------------------------------------------------
// Gateway Errors
// ---------------------------------------------------------------------------

var (
	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrInvalidSignature       = errors.New("payment: invalid signature")
	ErrInvalidConfig          = errors.New("payment: invalid gateway configuration")
	ErrInvalidSessionRequest  = errors.New("payment: invalid session request")
)

// ---------------------------------------------------------------------------
// Gateway Types
// ---------------------------------------------------------------------------

// State is the normalised payment state reported by a gateway
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// IsFinal returns true if the gateway has settled the payment
func (s State) IsFinal() bool {
	return s == StateCompleted || s == StateFailed
}

// SessionRequest asks a gateway to open a checkout for an order
type SessionRequest struct {
	// OrderID is our order id
	OrderID uuid.UUID
	// OrderNumber is shown to the customer and used as the gateway receipt
	OrderNumber string
	// Amount is the payable amount in INR
	Amount valueobject.Money
	// CustomerPhone is passed to gateways that prefill it
	CustomerPhone string
	// UserID identifies the payer to gateways that require it
	UserID uuid.UUID
	// Attempt distinguishes repeated sessions for the same order
	Attempt int
}

// Validate validates the session request
func (r SessionRequest) Validate() error {
	if r.OrderID == uuid.Nil || r.OrderNumber == "" {
		return fmt.Errorf("%w: order reference is required", ErrInvalidSessionRequest)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidSessionRequest)
	}
	return nil
}

// Session is what the storefront needs to send the customer to the gateway
type Session struct {
	// Provider identifies the gateway
	Provider order.PaymentProvider
	// GatewayOrderID is the Razorpay order id or PhonePe merchant transaction id
	GatewayOrderID string
	// KeyID is the public key for client-side checkout widgets
	KeyID string
	// AmountPaise is the amount in the smallest currency unit
	AmountPaise int64
	// Currency is always INR
	Currency string
	// RedirectURL is the hosted payment page (PhonePe)
	RedirectURL string
}

// StatusQuery carries what the gateway needs to report a payment state
type StatusQuery struct {
	// GatewayOrderID is the gateway's order reference
	GatewayOrderID string
	// PaymentID is the payment id returned to the client widget (Razorpay)
	PaymentID string
	// Signature is the client-side signature to verify (Razorpay)
	Signature string
	// MerchantTxnID is our transaction id at the gateway (PhonePe)
	MerchantTxnID string
}

// StatusResult is the gateway's answer for a payment
type StatusResult struct {
	// State is the normalised state
	State State
	// PaymentID is the gateway payment/transaction id once known
	PaymentID string
	// GatewayStatus is the raw status string from the gateway
	GatewayStatus string
	// Amount is what the gateway reports as paid, when available
	Amount *valueobject.Money
}

// Gateway is a payment provider adapter
type Gateway interface {
	// Provider returns the provider this gateway serves
	Provider() order.PaymentProvider
	// CreateSession opens a checkout for the order
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// FetchStatus asks the gateway for the payment state.
	// Returns ErrInvalidSignature when a client-supplied signature does not verify
	FetchStatus(ctx context.Context, query StatusQuery) (*StatusResult, error)
}

// WebhookEvent is a verified asynchronous notification from a gateway
type WebhookEvent struct {
	// ID is the gateway event id, used for deduplication
	ID string
	// Type is the gateway event name
	Type string
	// GatewayOrderID is the gateway order reference the event is about
	GatewayOrderID string
	// PaymentID is the payment id carried by the event
	PaymentID string
	// State is the normalised state the event reports
	State State
}

// WebhookVerifier verifies and decodes gateway notifications
type WebhookVerifier interface {
	ParseWebhook(body []byte, signature string) (*WebhookEvent, error)
}
