package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ErrInvalidCoupon is returned for codes that do not exist
var ErrInvalidCoupon = shared.NewDomainError("INVALID_COUPON", "Coupon code is not valid")

// CouponService validates coupon codes against the coupon table
type CouponService struct {
	couponRepo catalog.CouponRepository
	now        func() time.Time
}

// NewCouponService creates a new CouponService. now may be nil
func NewCouponService(couponRepo catalog.CouponRepository, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{couponRepo: couponRepo, now: now}
}

// Quote returns the discount code grants on subtotal
func (s *CouponService) Quote(ctx context.Context, code string, subtotal valueobject.Money) (*CouponQuote, error) {
	code = catalog.NormalizeCouponCode(code)
	if code == "" {
		return nil, catalog.ErrCouponCodeRequired
	}
	if subtotal.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Subtotal cannot be negative")
	}

	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidCoupon
		}
		return nil, err
	}
	discount, err := coupon.DiscountFor(subtotal, s.now())
	if err != nil {
		return nil, err
	}
	return &CouponQuote{
		Code:     coupon.Code,
		Discount: discount,
		Payable:  subtotal.Sub(discount),
	}, nil
}

// Validate is Quote for an HTTP request body
func (s *CouponService) Validate(ctx context.Context, req ValidateCouponRequest) (*CouponQuote, error) {
	return s.Quote(ctx, req.Code, req.Subtotal)
}
