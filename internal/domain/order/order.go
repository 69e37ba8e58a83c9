package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// Order errors
var (
	ErrNoItems            = shared.NewDomainError("INVALID_ORDER", "Order must contain at least one item")
	ErrInvalidItem        = shared.NewDomainError("INVALID_ORDER_ITEM", "Order item is invalid")
	ErrInvalidPaymentMode = shared.NewDomainError("INVALID_PAYMENT_MODE", "Payment mode must be online or cod")
	ErrProviderRequired   = shared.NewDomainError("INVALID_PAYMENT_PROVIDER", "Online orders need a payment provider")
	ErrPaymentNotPending  = shared.NewDomainError("PAYMENT_NOT_PENDING", "Payment has already been settled")
	ErrPricingMismatch    = shared.NewDomainError("PRICING_MISMATCH", "Final price does not match its breakdown")
	ErrNotOwner           = shared.NewDomainError("NOT_FOUND", "Order not found")
)

// Item is a priced order line, snapshotted at order time
type Item struct {
	ProductID uuid.UUID
	Title     string
	Image     string
	Quantity  int
	Price     valueobject.Money
	Variant   string
}

// LineTotal returns price × quantity
func (i Item) LineTotal() valueobject.Money {
	return i.Price.MulInt(i.Quantity)
}

// StatusEntry is one row of the status history log
type StatusEntry struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	Note      string    `json:"note"`
}

// DeliveryPolicy decides the delivery charge for a subtotal.
// A zero FreeAbove disables free delivery
type DeliveryPolicy struct {
	Flat      valueobject.Money
	FreeAbove valueobject.Money
}

// ChargeFor returns the delivery charge for the given subtotal
func (p DeliveryPolicy) ChargeFor(subtotal valueobject.Money) valueobject.Money {
	if p.FreeAbove.IsPositive() && !subtotal.LessThan(p.FreeAbove) {
		return valueobject.ZeroINR()
	}
	if p.Flat.IsNegative() {
		return valueobject.ZeroINR()
	}
	return p.Flat
}

// Order is the persisted record of a purchase
type Order struct {
	shared.Aggregate
	OrderNumber       string
	UserID            uuid.UUID
	Items             []Item
	TotalPrice        valueobject.Money
	Discount          valueobject.Money
	DeliveryCharge    valueobject.Money
	FinalPrice        valueobject.Money
	CouponCode        string
	ShippingAddress   valueobject.PostalAddress
	PaymentMode       PaymentMode
	PaymentProvider   PaymentProvider
	PaymentStatus     PaymentStatus
	PaymentID         string
	RazorpayOrderID   string
	RazorpayPaymentID string
	PhonePeOrderID    string
	Status            Status
	StatusHistory     []StatusEntry
	Shipment          Shipment
	StockCommitted    bool
}

// NewOrderParams carries everything needed to open an order
type NewOrderParams struct {
	OrderNumber     string
	UserID          uuid.UUID
	Items           []Item
	Discount        valueobject.Money
	CouponCode      string
	ShippingAddress valueobject.PostalAddress
	PaymentMode     PaymentMode
	PaymentProvider PaymentProvider
	Delivery        DeliveryPolicy
	Now             time.Time
}

// NewOrder creates an order and prices it.
// COD orders start in Processing, online orders wait in Pending for payment
func NewOrder(p NewOrderParams) (*Order, error) {
	if strings.TrimSpace(p.OrderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order number is required")
	}
	if p.UserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "User is required")
	}
	if len(p.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range p.Items {
		if it.ProductID == uuid.Nil || it.Quantity <= 0 || it.Price.IsNegative() {
			return nil, ErrInvalidItem
		}
	}
	if !p.PaymentMode.IsValid() {
		return nil, ErrInvalidPaymentMode
	}
	provider := p.PaymentProvider
	if p.PaymentMode == PaymentModeOnline {
		if !provider.IsValid() {
			return nil, ErrProviderRequired
		}
	} else {
		provider = ProviderNone
	}
	addr := p.ShippingAddress.Normalize()
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	o := &Order{
		Aggregate:       shared.NewAggregate(now),
		OrderNumber:     p.OrderNumber,
		UserID:          p.UserID,
		Items:           append([]Item(nil), p.Items...),
		CouponCode:      catalog.NormalizeCouponCode(p.CouponCode),
		ShippingAddress: addr,
		PaymentMode:     p.PaymentMode,
		PaymentProvider: provider,
		PaymentStatus:   PaymentPending,
		Shipment:        NoShipment(),
	}
	o.price(p.Discount, p.Delivery)

	if o.PaymentMode == PaymentModeCOD {
		o.Status = StatusProcessing
		o.addHistory(StatusProcessing, "Order placed with cash on delivery", now)
	} else {
		o.Status = StatusPending
		o.addHistory(StatusPending, fmt.Sprintf("Order placed, awaiting %s payment", provider), now)
	}
	return o, nil
}

func (o *Order) price(discount valueobject.Money, delivery DeliveryPolicy) {
	total := valueobject.ZeroINR()
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	if discount.IsNegative() {
		discount = valueobject.ZeroINR()
	}
	o.TotalPrice = total
	o.Discount = valueobject.Min(discount, total)
	if o.Discount.IsZero() {
		o.CouponCode = ""
	}
	o.DeliveryCharge = delivery.ChargeFor(total)
	o.FinalPrice = o.TotalPrice.Sub(o.Discount).Add(o.DeliveryCharge)
}

// VerifyPricing checks FinalPrice = TotalPrice − Discount + DeliveryCharge
func (o *Order) VerifyPricing() error {
	if !o.FinalPrice.Equals(o.TotalPrice.Sub(o.Discount).Add(o.DeliveryCharge)) {
		return ErrPricingMismatch
	}
	return nil
}

// ItemCount returns the number of units ordered
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// IsOwnedBy reports whether the order belongs to userID
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// IsOnline reports whether payment is collected through a gateway
func (o *Order) IsOnline() bool {
	return o.PaymentMode == PaymentModeOnline
}

// GatewayReference returns the id the provider knows this order by
func (o *Order) GatewayReference() string {
	switch o.PaymentProvider {
	case ProviderRazorpay:
		return o.RazorpayOrderID
	case ProviderPhonePe:
		return o.PhonePeOrderID
	}
	return ""
}

// StockDecrements returns the stock movement this order needs
func (o *Order) StockDecrements() []catalog.StockDecrement {
	lines := make([]catalog.StockDecrement, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, catalog.StockDecrement{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return catalog.MergeDecrements(lines)
}

// AttachRazorpayOrder records the Razorpay order id created for this order
func (o *Order) AttachRazorpayOrder(razorpayOrderID string, now time.Time) error {
	if o.PaymentProvider != ProviderRazorpay {
		return shared.NewDomainError("INVALID_PAYMENT_PROVIDER", "Order is not paid through Razorpay")
	}
	if err := o.ensureAwaitingPayment(); err != nil {
		return err
	}
	o.RazorpayOrderID = razorpayOrderID
	o.Touch(now)
	return nil
}

// AttachPhonePeTransaction records the PhonePe merchant transaction id
func (o *Order) AttachPhonePeTransaction(merchantTxnID string, now time.Time) error {
	if o.PaymentProvider != ProviderPhonePe {
		return shared.NewDomainError("INVALID_PAYMENT_PROVIDER", "Order is not paid through PhonePe")
	}
	if err := o.ensureAwaitingPayment(); err != nil {
		return err
	}
	o.PhonePeOrderID = merchantTxnID
	o.Touch(now)
	return nil
}

func (o *Order) ensureAwaitingPayment() error {
	if !o.IsOnline() {
		return shared.NewDomainError("INVALID_PAYMENT_MODE", "Cash on delivery orders have no online payment")
	}
	if o.PaymentStatus != PaymentPending {
		return ErrPaymentNotPending
	}
	if o.Status == StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Order has been cancelled")
	}
	return nil
}

// CompletePayment settles the payment. It returns changed=false when the
// payment was already completed so callers skip side effects like stock moves
func (o *Order) CompletePayment(paymentID, note string, now time.Time) (bool, error) {
	switch o.PaymentStatus {
	case PaymentCompleted:
		return false, nil
	case PaymentFailed:
		return false, ErrPaymentNotPending
	}
	o.PaymentStatus = PaymentCompleted
	o.PaymentID = paymentID
	if o.PaymentProvider == ProviderRazorpay {
		o.RazorpayPaymentID = paymentID
	}
	if note == "" {
		note = "Payment received"
	}
	if o.Status == StatusPending {
		o.Status = StatusProcessing
	}
	o.addHistory(o.Status, note, now)
	return true, nil
}

// FailPayment marks the payment failed and cancels the order.
// A repeated failure is a no-op
func (o *Order) FailPayment(note string, now time.Time) (bool, error) {
	switch o.PaymentStatus {
	case PaymentFailed:
		return false, nil
	case PaymentCompleted:
		return false, ErrPaymentNotPending
	}
	o.PaymentStatus = PaymentFailed
	if note == "" {
		note = "Payment failed"
	}
	o.Status = StatusCancelled
	o.addHistory(StatusCancelled, note, now)
	return true, nil
}

// NeedsStockCommit reports whether stock should be taken for this order now
func (o *Order) NeedsStockCommit() bool {
	if o.StockCommitted || o.Status == StatusCancelled {
		return false
	}
	return o.PaymentMode == PaymentModeCOD || o.PaymentStatus == PaymentCompleted
}

// MarkStockCommitted records that the stock decrement has been applied
func (o *Order) MarkStockCommitted() {
	o.StockCommitted = true
}

// ReleaseStock returns the committed stock movements of a cancelled order
// and clears the flag. Returns nil for any other status or when nothing was
// committed
func (o *Order) ReleaseStock() []catalog.StockDecrement {
	if o.Status != StatusCancelled || !o.StockCommitted {
		return nil
	}
	o.StockCommitted = false
	return o.StockDecrements()
}

// MarkCODCollected completes a cash on delivery payment
func (o *Order) MarkCODCollected(now time.Time) bool {
	if o.PaymentMode != PaymentModeCOD || o.PaymentStatus != PaymentPending {
		return false
	}
	o.PaymentStatus = PaymentCompleted
	o.Touch(now)
	return true
}

// UpdateStatus applies a staff status change and appends a history entry
func (o *Order) UpdateStatus(to Status, note string, now time.Time) error {
	if !to.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(to))
	}
	if o.Status == to {
		return shared.NewDomainError("INVALID_STATE", "Order is already "+string(to))
	}
	if !o.Status.CanTransitionTo(to) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot change order from %s to %s", o.Status, to))
	}
	if o.IsOnline() && o.PaymentStatus != PaymentCompleted && to != StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Online order has not been paid")
	}
	if to == StatusShipped && !o.Shipment.IsActive() {
		return shared.NewDomainError("INVALID_STATE", "Record a shipment before marking the order shipped")
	}
	o.Status = to
	if to == StatusDelivered {
		o.MarkCODCollected(now)
	}
	if note == "" {
		note = "Status changed to " + string(to)
	}
	o.addHistory(to, note, now)
	return nil
}

func (o *Order) addHistory(status Status, note string, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, StatusEntry{Status: status, UpdatedAt: now, Note: note})
	o.Touch(now)
}
