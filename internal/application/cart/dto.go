package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/cart"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// AddItemRequest adds units of a product to the cart
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Variant   string    `json:"variant" binding:"max=60"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=99"`
}

// UpdateItemRequest sets a line's quantity
type UpdateItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Variant   string    `json:"variant" binding:"max=60"`
	Quantity  int       `json:"quantity" binding:"min=0,max=99"`
}

// RemoveItemRequest addresses one cart line
type RemoveItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Variant   string    `json:"variant" binding:"max=60"`
}

// ApplyCouponRequest carries a coupon code
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,max=40"`
}

// CartResponse is the cart as returned to the storefront
type CartResponse struct {
	Items      []cart.Item       `json:"items"`
	ItemCount  int               `json:"item_count"`
	CouponCode string            `json:"coupon_code,omitempty"`
	Discount   valueobject.Money `json:"discount"`
	Total      valueobject.Money `json:"total"`
	TotalPrice valueobject.Money `json:"total_price"`
	Payable    valueobject.Money `json:"payable"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
}

// ToCartResponse converts a domain cart
func ToCartResponse(c *cart.Cart) *CartResponse {
	resp := &CartResponse{
		Items:      c.Items,
		ItemCount:  c.ItemCount(),
		CouponCode: c.CouponCode,
		Discount:   c.Discount,
		Total:      c.Total,
		TotalPrice: c.TotalPrice,
		Payable:    c.Payable(),
	}
	if !c.ExpiresAt.IsZero() {
		exp := c.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return resp
}
