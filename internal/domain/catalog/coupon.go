package catalog

import (
	"strings"
	"time"

	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// Coupon is a flat-amount discount code
type Coupon struct {
	shared.Entity
	Code          string
	Amount        valueobject.Money
	MinOrderValue valueobject.Money
	Active        bool
	ExpiresAt     *time.Time
}

// Coupon errors
var (
	ErrCouponInactive     = shared.NewDomainError("COUPON_INACTIVE", "Coupon is not active")
	ErrCouponExpired      = shared.NewDomainError("COUPON_EXPIRED", "Coupon has expired")
	ErrCouponMinNotMet    = shared.NewDomainError("COUPON_MIN_ORDER", "Order value is below the coupon minimum")
	ErrCouponCodeRequired = shared.NewDomainError("COUPON_CODE_REQUIRED", "Coupon code is required")
)

// NormalizeCouponCode upper-cases and trims a code as typed by a customer
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DiscountFor returns the discount this coupon grants on subtotal at time now.
// The discount never exceeds the subtotal
func (c *Coupon) DiscountFor(subtotal valueobject.Money, now time.Time) (valueobject.Money, error) {
	if !c.Active {
		return valueobject.ZeroINR(), ErrCouponInactive
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return valueobject.ZeroINR(), ErrCouponExpired
	}
	if subtotal.LessThan(c.MinOrderValue) {
		return valueobject.ZeroINR(), ErrCouponMinNotMet
	}
	return valueobject.Min(c.Amount, subtotal), nil
}
