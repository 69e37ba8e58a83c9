package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/cart"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Checkout errors
var (
	ErrPriceChanged       = shared.NewDomainError("PRICE_CHANGED", "Prices changed since the cart was loaded, please review your cart")
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "A product in the cart is no longer available")
	ErrVariantUnavailable = shared.NewDomainError("VARIANT_UNAVAILABLE", "A selected variant is no longer available")
	ErrAddressRequired    = shared.NewDomainError("ADDRESS_REQUIRED", "A delivery address is required")
)

// PriceChangedError lists the lines whose catalog price moved
type PriceChangedError struct {
	Changes []PriceChange
}

func (e *PriceChangedError) Error() string {
	return ErrPriceChanged.Message
}

// Is makes errors.Is(err, ErrPriceChanged) hold
func (e *PriceChangedError) Is(target error) bool {
	return target == ErrPriceChanged
}

// Unwrap exposes the domain error so the HTTP layer maps it like any other
func (e *PriceChangedError) Unwrap() error {
	return ErrPriceChanged
}

// NumberGenerator issues order numbers
type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// SessionOpener opens a gateway checkout for a saved online order
type SessionOpener interface {
	OpenSession(ctx context.Context, o *order.Order) (*payment.Session, error)
}

// ServiceConfig holds the dependencies of the checkout service
type ServiceConfig struct {
	Orders   order.Repository
	Products catalog.ProductRepository
	Coupons  catalog.CouponRepository
	Users    identity.UserRepository
	Tx       shared.TxManager
	Numbers  NumberGenerator
	Payments SessionOpener
	// Carts is optional; the customer's server cart is cleared after a COD order
	Carts    cart.Store
	Delivery order.DeliveryPolicy
	Metrics  *telemetry.StoreMetrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service places orders. Prices, stock and discounts are always taken from
// the catalog, never from the request
type Service struct {
	orders   order.Repository
	products catalog.ProductRepository
	coupons  catalog.CouponRepository
	users    identity.UserRepository
	tx       shared.TxManager
	numbers  NumberGenerator
	payments SessionOpener
	carts    cart.Store
	delivery order.DeliveryPolicy
	metrics  *telemetry.StoreMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new checkout service
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		orders:   cfg.Orders,
		products: cfg.Products,
		coupons:  cfg.Coupons,
		users:    cfg.Users,
		tx:       cfg.Tx,
		numbers:  cfg.Numbers,
		payments: cfg.Payments,
		carts:    cfg.Carts,
		delivery: cfg.Delivery,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PlaceOrder validates the submission against the catalog and records the order.
// COD orders take stock in the same transaction as the insert; online orders
// are saved Pending and a gateway session is opened for them. When the gateway
// cannot be reached the order stays Pending, the saved order is returned
// alongside the error, and the customer can open a new session later
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentMode, string(req.PaymentMode), telemetry.SpanAttrItemCount, len(req.Items))

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	address, err := s.resolveAddress(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	subtotal := valueobject.ZeroINR()
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	now := s.now()
	discount, code, err := s.discountFor(ctx, req.CouponCode, subtotal, now)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue order number: %w", err)
	}
	o, err := order.NewOrder(order.NewOrderParams{
		OrderNumber:     number,
		UserID:          userID,
		Items:           items,
		Discount:        discount,
		CouponCode:      code,
		ShippingAddress: address,
		PaymentMode:     req.PaymentMode,
		PaymentProvider: req.Provider,
		Delivery:        s.delivery,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderNumber, o.OrderNumber)

	if o.PaymentMode == order.PaymentModeCOD {
		if err := s.placeCOD(ctx, o); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		telemetry.AddEvent(span, "stock_committed", telemetry.SpanAttrItemCount, o.ItemCount())
		s.recordPlaced(ctx, o)
		return &PlaceOrderResult{Order: o}, nil
	}

	if err := s.orders.Save(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.recordPlaced(ctx, o)

	sess, err := s.payments.OpenSession(ctx, o)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.For(ctx, s.logger).Warn("Order saved but payment session failed",
			zap.String("order_number", o.OrderNumber),
			zap.String("provider", string(o.PaymentProvider)),
			zap.Error(err))
		return &PlaceOrderResult{Order: o}, err
	}
	return &PlaceOrderResult{Order: o, Session: sess}, nil
}

func (s *Service) placeCOD(ctx context.Context, o *order.Order) error {
	o.MarkStockCommitted()
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := s.products.DecrementStock(ctx, o.StockDecrements()); err != nil {
			return err
		}
		return s.orders.Save(ctx, o)
	})
	if err != nil {
		return err
	}
	if s.carts != nil {
		if err := s.carts.Delete(ctx, o.UserID); err != nil {
			logger.For(ctx, s.logger).Warn("Failed to clear cart after order", zap.String("order_number", o.OrderNumber), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) recordPlaced(ctx context.Context, o *order.Order) {
	s.metrics.RecordOrderPlaced(ctx, string(o.PaymentMode), string(o.PaymentProvider), o.FinalPrice.Amount())
	logger.For(ctx, s.logger).Info("Order placed",
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", o.UserID.String()),
		zap.String("payment_mode", string(o.PaymentMode)),
		zap.String("final_price", o.FinalPrice.String()),
		zap.Int("items", o.ItemCount()))
}

func validateRequest(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return order.ErrNoItems
	}
	for _, it := range req.Items {
		if it.ProductID == uuid.Nil {
			return shared.NewDomainError("INVALID_INPUT", "Product id is required")
		}
		if it.Quantity <= 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")
		}
	}
	if !req.PaymentMode.IsValid() {
		return order.ErrInvalidPaymentMode
	}
	if req.PaymentMode == order.PaymentModeOnline && !req.Provider.IsValid() {
		return order.ErrProviderRequired
	}
	return nil
}

func (s *Service) resolveAddress(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (valueobject.PostalAddress, error) {
	var addr valueobject.PostalAddress
	switch {
	case req.AddressID != nil:
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return addr, err
		}
		a, ok := u.FindAddress(*req.AddressID)
		if !ok {
			return addr, identity.ErrAddressNotFound
		}
		addr = a.PostalAddress
	case req.Address != nil:
		addr = *req.Address
	default:
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return addr, err
		}
		a, ok := u.DefaultAddress()
		if !ok {
			return addr, ErrAddressRequired
		}
		addr = a.PostalAddress
	}
	addr = addr.Normalize()
	if err := addr.Validate(); err != nil {
		return addr, shared.WrapDomainError("INVALID_ADDRESS", err.Error(), err)
	}
	return addr, nil
}

// priceItems re-reads every product and builds order lines at catalog prices
func (s *Service) priceItems(ctx context.Context, reqs []ItemRequest) ([]order.Item, error) {
	ids := make([]uuid.UUID, 0, len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	for _, r := range reqs {
		if !seen[r.ProductID] {
			seen[r.ProductID] = true
			ids = append(ids, r.ProductID)
		}
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	wanted := make(map[uuid.UUID]int, len(ids))
	var changes []PriceChange
	items := make([]order.Item, 0, len(reqs))
	for _, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok || !p.IsActive() {
			return nil, ErrProductUnavailable
		}
		if !p.HasVariant(r.Variant) {
			return nil, ErrVariantUnavailable
		}
		if r.Price != nil && !r.Price.Equals(p.Price) {
			changes = append(changes, PriceChange{ProductID: p.ID, Title: p.Title, Was: *r.Price, Now: p.Price})
		}
		wanted[p.ID] += r.Quantity
		items = append(items, order.Item{
			ProductID: p.ID,
			Title:     p.Title,
			Image:     p.Image,
			Quantity:  r.Quantity,
			Price:     p.Price,
			Variant:   r.Variant,
		})
	}
	if len(changes) > 0 {
		return nil, &PriceChangedError{Changes: changes}
	}
	for id, qty := range wanted {
		if !byID[id].CanFulfil(qty) {
			return nil, shared.NewDomainError(shared.ErrInsufficientStock.Code,
				fmt.Sprintf("Only %d of %s left in stock", byID[id].Stock, byID[id].Title))
		}
	}
	return items, nil
}

func (s *Service) discountFor(ctx context.Context, code string, subtotal valueobject.Money, now time.Time) (valueobject.Money, string, error) {
	code = catalog.NormalizeCouponCode(code)
	if code == "" {
		return valueobject.ZeroINR(), "", nil
	}
	c, err := s.coupons.FindByCode(ctx, code)
	if errors.Is(err, shared.ErrNotFound) {
		return valueobject.ZeroINR(), "", shared.NewDomainError("INVALID_COUPON", "Coupon code is not valid")
	}
	if err != nil {
		return valueobject.ZeroINR(), "", err
	}
	discount, err := c.DiscountFor(subtotal, now)
	if err != nil {
		return valueobject.ZeroINR(), "", err
	}
	return discount, c.Code, nil
}
