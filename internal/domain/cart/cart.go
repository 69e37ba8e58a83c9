// Package cart holds the shopping cart reducer. A cart is a snapshot of the
// products a customer picked, not an authoritative price list: checkout
// re-reads prices and stock from the catalog.
package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// DefaultTTL is how long an untouched cart survives
const DefaultTTL = 7 * 24 * time.Hour

// ProductSnapshot is the product data copied into a cart line at add time
type ProductSnapshot struct {
	ID    uuid.UUID
	Title string
	Image string
	Price valueobject.Money
	Stock int
}

// Item is one cart line, keyed by product id and variant
type Item struct {
	ProductID uuid.UUID         `json:"productId"`
	Title     string            `json:"title"`
	Image     string            `json:"image,omitempty"`
	Variant   string            `json:"variant,omitempty"`
	Price     valueobject.Money `json:"price"`
	Quantity  int               `json:"quantity"`
	Stock     int               `json:"stock"`
	AddedAt   time.Time         `json:"addedAt"`
}

// LineTotal returns price x quantity
func (i Item) LineTotal() valueobject.Money {
	return i.Price.MulInt(i.Quantity)
}

// Cart is the reducer state. Total is recomputed after every mutation and
// mirrored into TotalPrice for older storefront builds that read that field.
type Cart struct {
	Items      []Item            `json:"items"`
	Discount   valueobject.Money `json:"discount"`
	CouponCode string            `json:"couponCode,omitempty"`
	Total      valueobject.Money `json:"total"`
	TotalPrice valueobject.Money `json:"totalPrice"`
	ExpiresAt  time.Time         `json:"expiry"`

	ttl   time.Duration
	clock func() time.Time
}

// Option configures a cart
type Option func(*Cart)

// WithTTL overrides the default expiry window
func WithTTL(ttl time.Duration) Option {
	return func(c *Cart) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(c *Cart) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// ErrInvalidQuantity is returned when a line quantity is not positive
var ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")

// ErrItemNotInCart is returned when a line addressed by product and variant does not exist
var ErrItemNotInCart = shared.NewDomainError("ITEM_NOT_IN_CART", "Item is not in the cart")

// New returns an empty cart
func New(opts ...Option) *Cart {
	c := &Cart{
		Items: []Item{},
		ttl:   DefaultTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Discount = valueobject.ZeroINR()
	c.recompute()
	return c
}

// Hydrate restores a stored snapshot. A snapshot whose expiry is missing or
// already past hydrates to an empty cart.
func Hydrate(snapshot *Cart, opts ...Option) *Cart {
	c := New(opts...)
	if snapshot == nil || snapshot.ExpiresAt.IsZero() || !c.clock().Before(snapshot.ExpiresAt) {
		return c
	}
	c.Items = append([]Item{}, snapshot.Items...)
	c.Discount = snapshot.Discount
	c.CouponCode = snapshot.CouponCode
	c.ExpiresAt = snapshot.ExpiresAt
	c.Total, c.TotalPrice = c.sum(), c.sum()
	return c
}

// AddToCart merges into the line with the same product and variant, or appends a new line
func (c *Cart) AddToCart(product ProductSnapshot, quantity int, variant string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i := c.find(product.ID, variant); i >= 0 {
		c.Items[i].Quantity += quantity
		c.Items[i].Price = product.Price
		c.Items[i].Stock = product.Stock
	} else {
		c.Items = append(c.Items, Item{
			ProductID: product.ID,
			Title:     product.Title,
			Image:     product.Image,
			Variant:   variant,
			Price:     product.Price,
			Quantity:  quantity,
			Stock:     product.Stock,
			AddedAt:   c.clock(),
		})
	}
	c.touch()
	return nil
}

// RemoveFromCart drops the line for product and variant
func (c *Cart) RemoveFromCart(productID uuid.UUID, variant string) error {
	i := c.find(productID, variant)
	if i < 0 {
		return ErrItemNotInCart
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.touch()
	return nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line
func (c *Cart) UpdateQuantity(productID uuid.UUID, variant string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveFromCart(productID, variant)
	}
	i := c.find(productID, variant)
	if i < 0 {
		return ErrItemNotInCart
	}
	c.Items[i].Quantity = quantity
	c.touch()
	return nil
}

// ApplyCoupon records a flat discount already validated by the caller
func (c *Cart) ApplyCoupon(code string, discount valueobject.Money) error {
	if code == "" {
		return shared.NewDomainError("COUPON_CODE_REQUIRED", "Coupon code is required")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	c.CouponCode = code
	c.Discount = discount
	c.touch()
	return nil
}

// RemoveCoupon clears the discount and code
func (c *Cart) RemoveCoupon() {
	c.CouponCode = ""
	c.Discount = valueobject.ZeroINR()
	c.touch()
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.CouponCode = ""
	c.Discount = valueobject.ZeroINR()
	c.touch()
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the number of units across all lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Payable returns Total minus Discount, never below zero
func (c *Cart) Payable() valueobject.Money {
	p := c.Total.Sub(c.Discount)
	if p.IsNegative() {
		return valueobject.ZeroINR()
	}
	return p
}

// TTLRemaining returns how long the cart has until it expires
func (c *Cart) TTLRemaining() time.Duration {
	return c.ExpiresAt.Sub(c.clock())
}

func (c *Cart) find(productID uuid.UUID, variant string) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.Variant == variant {
			return i
		}
	}
	return -1
}

func (c *Cart) sum() valueobject.Money {
	total := valueobject.ZeroINR()
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) recompute() {
	c.Total = c.sum()
	c.TotalPrice = c.Total
}

func (c *Cart) touch() {
	c.recompute()
	c.ExpiresAt = c.clock().Add(c.ttl)
}

// Store persists carts per customer
type Store interface {
	// Load returns the customer's cart, or an empty cart when none is stored or it expired
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, userID uuid.UUID, c *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}
