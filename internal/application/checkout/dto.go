package checkout

import (
	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ItemRequest is one line the storefront wants to buy. Price is what the
// customer saw; when set it must still match the catalog
type ItemRequest struct {
	ProductID uuid.UUID
	Variant   string
	Quantity  int
	Price     *valueobject.Money
}

// PlaceOrderRequest carries a checkout submission
type PlaceOrderRequest struct {
	Items []ItemRequest
	// AddressID picks an address from the customer's book
	AddressID *uuid.UUID
	// Address is used when no AddressID is given. When both are empty the
	// default address is used
	Address     *valueobject.PostalAddress
	PaymentMode order.PaymentMode
	Provider    order.PaymentProvider
	CouponCode  string
}

// PlaceOrderResult is the placed order and, for online orders, the gateway checkout
type PlaceOrderResult struct {
	Order   *order.Order
	Session *payment.Session
}

// PriceChange describes one line whose price moved since the customer saw it
type PriceChange struct {
	ProductID uuid.UUID         `json:"product_id"`
	Title     string            `json:"title"`
	Was       valueobject.Money `json:"was"`
	Now       valueobject.Money `json:"now"`
}
