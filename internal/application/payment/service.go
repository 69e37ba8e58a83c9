package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/cart"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	defaultLockTTL    = 30 * time.Second
	defaultWebhookTTL = 72 * time.Hour
)

var (
	// ErrSettlementInProgress is returned while another request is settling the same order
	ErrSettlementInProgress = shared.NewDomainError("PAYMENT_IN_PROGRESS", "Payment is being confirmed, please retry shortly")
	// ErrNotOnlineOrder is returned for payment operations on cash on delivery orders
	ErrNotOnlineOrder = shared.NewDomainError("INVALID_PAYMENT_MODE", "Cash on delivery orders have no online payment")
	// ErrAmountMismatch is returned when the gateway reports a different amount than the order total
	ErrAmountMismatch = shared.NewDomainError("PAYMENT_AMOUNT_MISMATCH", "Paid amount does not match the order total")
	// ErrWrongGatewayOrder is returned when a client callback names another gateway order
	ErrWrongGatewayOrder = shared.NewDomainError("INVALID_PAYMENT_REFERENCE", "Payment does not belong to this order")
	// ErrInvalidPaymentSignature is the customer-facing form of payment.ErrInvalidSignature
	ErrInvalidPaymentSignature = shared.WrapDomainError("INVALID_SIGNATURE", "Payment signature verification failed", payment.ErrInvalidSignature)
)

// VerifyInput is what the Razorpay checkout widget hands back to the storefront
type VerifyInput struct {
	RazorpayOrderID   string
	RazorpayPaymentID string
	Signature         string
}

// SessionResult is an order together with the gateway checkout it can be paid through
type SessionResult struct {
	Order   *order.Order
	Session *payment.Session
}

// WebhookResult reports what a gateway notification did
type WebhookResult struct {
	EventID   string
	Duplicate bool
	Ignored   bool
	Order     *order.Order
}

// ServiceConfig holds the dependencies of the payment service
type ServiceConfig struct {
	Orders      order.Repository
	Products    catalog.ProductRepository
	Tx          shared.TxManager
	Gateways    *payment.Registry
	Locker      shared.KeyLocker
	Idempotency shared.IdempotencyStore
	// Carts is optional; when set the customer's cart is cleared after a completed payment
	Carts   cart.Store
	Metrics *telemetry.StoreMetrics
	Logger  *zap.Logger
	// LockTTL bounds how long one settlement may hold the per-order lock
	LockTTL time.Duration
	Now     func() time.Time
}

// Service opens gateway sessions and settles online payments. Every path that
// changes a payment status goes through settle, which holds a per-order lock
// and re-reads the order, so callbacks, polls, webhooks and the reconciler can
// race without double-counting stock.
type Service struct {
	orders      order.Repository
	products    catalog.ProductRepository
	tx          shared.TxManager
	gateways    *payment.Registry
	locker      shared.KeyLocker
	idempotency shared.IdempotencyStore
	carts       cart.Store
	metrics     *telemetry.StoreMetrics
	logger      *zap.Logger
	lockTTL     time.Duration
	now         func() time.Time
}

// NewService creates a new payment service
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		orders:      cfg.Orders,
		products:    cfg.Products,
		tx:          cfg.Tx,
		gateways:    cfg.Gateways,
		locker:      cfg.Locker,
		idempotency: cfg.Idempotency,
		carts:       cfg.Carts,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		lockTTL:     cfg.LockTTL,
		now:         cfg.Now,
	}
	if s.gateways == nil {
		s.gateways = payment.NewRegistry()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// OpenSession creates a gateway checkout for a freshly placed order and
// stores the gateway reference on it
func (s *Service) OpenSession(ctx context.Context, o *order.Order) (*payment.Session, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "open_session")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderNumber, o.OrderNumber, telemetry.SpanAttrProvider, string(o.PaymentProvider))

	sess, err := s.openSession(ctx, o)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return sess, nil
}

// CreateSession re-opens checkout for a customer's pending online order.
// A previous session is checked first so an order that was paid meanwhile is
// settled rather than charged twice
func (s *Service) CreateSession(ctx context.Context, userID, orderID uuid.UUID) (*SessionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_session")
	defer span.End()

	o, err := s.ownedOnlineOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.GatewayReference() != "" {
		o, err = s.settle(ctx, orderID, s.statusQuery)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if o.PaymentStatus != order.PaymentPending {
		return nil, order.ErrPaymentNotPending
	}
	if o.Status == order.StatusCancelled {
		return nil, shared.NewDomainError("INVALID_STATE", "Order has been cancelled")
	}

	sess, err := s.openSession(ctx, o)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &SessionResult{Order: o, Session: sess}, nil
}

func (s *Service) openSession(ctx context.Context, o *order.Order) (*payment.Session, error) {
	if !o.IsOnline() {
		return nil, ErrNotOnlineOrder
	}
	gw, err := s.gateways.Get(o.PaymentProvider)
	if err != nil {
		return nil, shared.WrapDomainError("PAYMENT_PROVIDER_UNAVAILABLE", "This payment method is not available", err)
	}

	sess, err := gw.CreateSession(ctx, payment.SessionRequest{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Amount:        o.FinalPrice,
		CustomerPhone: o.ShippingAddress.Phone,
		UserID:        o.UserID,
		Attempt:       nextAttempt(o.GatewayReference()),
	})
	if err != nil {
		logger.For(ctx, s.logger).Warn("Payment session failed",
			zap.String("order_number", o.OrderNumber),
			zap.String("provider", string(o.PaymentProvider)),
			zap.Error(err))
		return nil, asDomainError(err)
	}

	now := s.now()
	switch o.PaymentProvider {
	case order.ProviderRazorpay:
		err = o.AttachRazorpayOrder(sess.GatewayOrderID, now)
	case order.ProviderPhonePe:
		err = o.AttachPhonePeTransaction(sess.GatewayOrderID, now)
	}
	if err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	logger.For(ctx, s.logger).Info("Payment session opened",
		zap.String("order_number", o.OrderNumber),
		zap.String("provider", string(o.PaymentProvider)),
		zap.String("gateway_order_id", sess.GatewayOrderID))
	return sess, nil
}

// Verify settles a Razorpay payment from the checkout widget's callback.
// The signature is checked by the gateway before anything is recorded
func (s *Service) Verify(ctx context.Context, userID, orderID uuid.UUID, in VerifyInput) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "verify")
	defer span.End()

	o, err := s.ownedOnlineOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentProvider != order.ProviderRazorpay {
		return nil, shared.NewDomainError("INVALID_PAYMENT_PROVIDER", "Order is not paid through Razorpay")
	}
	if in.RazorpayPaymentID == "" || in.Signature == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Payment id and signature are required")
	}
	if in.RazorpayOrderID != "" && in.RazorpayOrderID != o.RazorpayOrderID {
		return nil, ErrWrongGatewayOrder
	}

	settled, err := s.settle(ctx, orderID, func(o *order.Order) payment.StatusQuery {
		return payment.StatusQuery{
			GatewayOrderID: o.RazorpayOrderID,
			PaymentID:      in.RazorpayPaymentID,
			Signature:      in.Signature,
		}
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return settled, nil
}

// CheckStatus polls the gateway for a customer's order (PhonePe redirect page)
func (s *Service) CheckStatus(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "check_status")
	defer span.End()

	if _, err := s.ownedOnlineOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}
	o, err := s.settle(ctx, orderID, s.statusQuery)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return o, nil
}

// Reconcile asks the gateway about an order nobody came back for
func (s *Service) Reconcile(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "reconcile")
	defer span.End()

	o, err := s.settle(ctx, orderID, s.statusQuery)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return o, nil
}

// HandleWebhook verifies a gateway notification and settles the order it is
// about. Redelivered events are acknowledged without doing anything
func (s *Service) HandleWebhook(ctx context.Context, provider order.PaymentProvider, body []byte, signature string) (*WebhookResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "webhook")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrProvider, string(provider))

	gw, err := s.gateways.Get(provider)
	if err != nil {
		return nil, shared.WrapDomainError("PAYMENT_PROVIDER_UNAVAILABLE", "This payment method is not available", err)
	}
	verifier, ok := gw.(payment.WebhookVerifier)
	if !ok {
		return nil, shared.NewDomainError("PAYMENT_PROVIDER_UNAVAILABLE", "Provider does not send webhooks")
	}
	event, err := verifier.ParseWebhook(body, signature)
	if err != nil {
		logger.For(ctx, s.logger).Warn("Webhook rejected", zap.String("provider", string(provider)), zap.Error(err))
		return nil, asDomainError(err)
	}

	res := &WebhookResult{EventID: event.ID}
	key := fmt.Sprintf("webhook:%s:%s", provider, event.ID)
	if s.idempotency != nil {
		done, err := s.idempotency.IsProcessed(ctx, key)
		if err != nil {
			s.logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		} else if done {
			res.Duplicate = true
			return res, nil
		}
	}

	if !event.State.IsFinal() {
		res.Ignored = true
		s.logger.Debug("Webhook event ignored",
			zap.String("provider", string(provider)),
			zap.String("event", event.Type))
		return res, s.markProcessed(ctx, key)
	}

	o, err := s.orders.FindByGatewayReference(ctx, provider, event.GatewayOrderID)
	if errors.Is(err, shared.ErrNotFound) {
		res.Ignored = true
		logger.For(ctx, s.logger).Warn("Webhook for unknown gateway order",
			zap.String("provider", string(provider)),
			zap.String("gateway_order_id", event.GatewayOrderID))
		return res, s.markProcessed(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	res.Order, err = s.settleWith(ctx, o.ID, func(context.Context, *order.Order) (*payment.StatusResult, error) {
		return &payment.StatusResult{State: event.State, PaymentID: event.PaymentID, GatewayStatus: event.Type}, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return res, s.markProcessed(ctx, key)
}

func (s *Service) markProcessed(ctx context.Context, key string) error {
	if s.idempotency == nil {
		return nil
	}
	if _, err := s.idempotency.MarkProcessed(ctx, key, defaultWebhookTTL); err != nil {
		s.logger.Warn("Failed to mark webhook processed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (s *Service) statusQuery(o *order.Order) payment.StatusQuery {
	return payment.StatusQuery{GatewayOrderID: o.GatewayReference(), MerchantTxnID: o.PhonePeOrderID}
}

func (s *Service) settle(ctx context.Context, orderID uuid.UUID, query func(*order.Order) payment.StatusQuery) (*order.Order, error) {
	return s.settleWith(ctx, orderID, func(ctx context.Context, o *order.Order) (*payment.StatusResult, error) {
		gw, err := s.gateways.Get(o.PaymentProvider)
		if err != nil {
			return nil, shared.WrapDomainError("PAYMENT_PROVIDER_UNAVAILABLE", "This payment method is not available", err)
		}
		return gw.FetchStatus(ctx, query(o))
	})
}

// settleWith serialises settlement per order, reloads it and applies the
// gateway's answer. Orders whose payment is no longer pending are returned as is
func (s *Service) settleWith(ctx context.Context, orderID uuid.UUID, fetch func(context.Context, *order.Order) (*payment.StatusResult, error)) (*order.Order, error) {
	unlock, err := s.lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsOnline() {
		return nil, ErrNotOnlineOrder
	}
	if o.PaymentStatus != order.PaymentPending || o.GatewayReference() == "" {
		return o, nil
	}

	result, err := fetch(ctx, o)
	if err != nil {
		return nil, asDomainError(err)
	}
	if err := s.apply(ctx, o, result); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := "payment:settle:" + orderID.String()
	ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire settlement lock: %w", err)
	}
	if !ok {
		return nil, ErrSettlementInProgress
	}
	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release settlement lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *Service) apply(ctx context.Context, o *order.Order, result *payment.StatusResult) error {
	now := s.now()
	provider := string(o.PaymentProvider)

	switch result.State {
	case payment.StateCompleted:
		if result.Amount != nil && !result.Amount.Equals(o.FinalPrice) {
			logger.For(ctx, s.logger).Error("Gateway amount differs from order total",
				zap.String("order_number", o.OrderNumber),
				zap.String("expected", o.FinalPrice.String()),
				zap.String("paid", result.Amount.String()),
				zap.String("payment_id", result.PaymentID))
			return ErrAmountMismatch
		}
		note := fmt.Sprintf("Payment received via %s", o.PaymentProvider)
		if result.PaymentID != "" {
			note += " (" + result.PaymentID + ")"
		}
		err := s.tx.Transaction(ctx, func(ctx context.Context) error {
			changed, err := o.CompletePayment(result.PaymentID, note, now)
			if err != nil || !changed {
				return err
			}
			if o.NeedsStockCommit() {
				err := s.products.DecrementStock(ctx, o.StockDecrements())
				switch {
				case errors.Is(err, shared.ErrInsufficientStock):
					logger.For(ctx, s.logger).Error("Paid order is oversold, stock left uncommitted",
						zap.String("order_number", o.OrderNumber))
				case err != nil:
					return err
				default:
					o.MarkStockCommitted()
				}
			}
			return s.orders.SaveWithLock(ctx, o)
		})
		if err != nil {
			return err
		}
		s.metrics.RecordPayment(ctx, provider, string(order.PaymentCompleted))
		logger.For(ctx, s.logger).Info("Payment completed",
			zap.String("order_number", o.OrderNumber),
			zap.String("provider", provider),
			zap.String("payment_id", result.PaymentID))
		if o.Status == order.StatusCancelled {
			logger.For(ctx, s.logger).Warn("Payment captured on a cancelled order, refund must be issued from the gateway dashboard",
				zap.String("order_number", o.OrderNumber),
				zap.String("provider", provider),
				zap.String("payment_id", result.PaymentID),
				zap.String("amount", o.FinalPrice.String()))
		}
		s.clearCart(ctx, o.UserID)

	case payment.StateFailed:
		changed, err := o.FailPayment(fmt.Sprintf("Payment failed at %s (%s)", o.PaymentProvider, result.GatewayStatus), now)
		if err != nil || !changed {
			return err
		}
		if err := s.orders.SaveWithLock(ctx, o); err != nil {
			return err
		}
		s.metrics.RecordPayment(ctx, provider, string(order.PaymentFailed))
		logger.For(ctx, s.logger).Info("Payment failed",
			zap.String("order_number", o.OrderNumber),
			zap.String("provider", provider),
			zap.String("gateway_status", result.GatewayStatus))
	}
	return nil
}

func (s *Service) clearCart(ctx context.Context, userID uuid.UUID) {
	if s.carts == nil {
		return
	}
	if err := s.carts.Delete(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear cart after payment", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *Service) ownedOnlineOrder(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, order.ErrNotOwner
	}
	if !o.IsOnline() {
		return nil, ErrNotOnlineOrder
	}
	return o, nil
}

// nextAttempt numbers the next gateway session. PhonePe references end in
// _<attempt>; anything else counts as the first attempt
func nextAttempt(reference string) int {
	if reference == "" {
		return 1
	}
	i := strings.LastIndexByte(reference, '_')
	if i < 0 {
		return 2
	}
	n, err := strconv.Atoi(reference[i+1:])
	if err != nil || n < 1 {
		return 2
	}
	return n + 1
}

// asDomainError turns gateway sentinels into errors the HTTP layer can map.
// Errors that already are domain errors pass through
func asDomainError(err error) error {
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, payment.ErrInvalidSignature):
		return ErrInvalidPaymentSignature
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return shared.WrapDomainError(shared.ErrExternalUnavailable.Code, shared.ErrExternalUnavailable.Message, err)
	case errors.Is(err, payment.ErrGatewayRequestFailed), errors.Is(err, payment.ErrGatewayInvalidResponse):
		return shared.WrapDomainError("PAYMENT_GATEWAY_ERROR", "Payment gateway rejected the request", err)
	case errors.Is(err, payment.ErrInvalidSessionRequest):
		return shared.WrapDomainError("INVALID_INPUT", "Payment request is incomplete", err)
	}
	return err
}
