// Package cart serves the customer's server-held cart.
package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	catalogapp "github.com/wellnest/backend/internal/application/catalog"
	"github.com/wellnest/backend/internal/domain/cart"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Cart errors
var (
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
	ErrVariantUnavailable = shared.NewDomainError("VARIANT_UNAVAILABLE", "Selected variant is not available")
)

// CouponQuoter prices a coupon code against a subtotal
type CouponQuoter interface {
	Quote(ctx context.Context, code string, subtotal valueobject.Money) (*catalogapp.CouponQuote, error)
}

// Service mutates carts through the domain reducer and persists them in a Store
type Service struct {
	store    cart.Store
	products catalog.ProductRepository
	coupons  CouponQuoter
	logger   *zap.Logger
}

// NewService creates a new cart service
func NewService(store cart.Store, products catalog.ProductRepository, coupons CouponQuoter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, products: products, coupons: coupons, logger: logger}
}

// Get returns the customer's cart
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToCartResponse(c), nil
}

// AddItem adds quantity units of a product variant, snapshotting the catalog
// price and stock
func (s *Service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartResponse, error) {
	p, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if !p.IsActive() {
		return nil, ErrProductUnavailable
	}
	if !p.HasVariant(req.Variant) {
		return nil, ErrVariantUnavailable
	}

	return s.mutate(ctx, userID, func(c *cart.Cart) error {
		if !p.CanFulfil(quantityOf(c, p.ID) + req.Quantity) {
			return shared.NewDomainError(shared.ErrInsufficientStock.Code, "Not enough stock for "+p.Title)
		}
		return c.AddToCart(cart.ProductSnapshot{
			ID:    p.ID,
			Title: p.Title,
			Image: p.Image,
			Price: p.Price,
			Stock: p.Stock,
		}, req.Quantity, req.Variant)
	})
}

// UpdateItem sets a line's quantity; zero removes the line
func (s *Service) UpdateItem(ctx context.Context, userID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	return s.mutate(ctx, userID, func(c *cart.Cart) error {
		return c.UpdateQuantity(req.ProductID, req.Variant, req.Quantity)
	})
}

// RemoveItem drops a line
func (s *Service) RemoveItem(ctx context.Context, userID uuid.UUID, req RemoveItemRequest) (*CartResponse, error) {
	return s.mutate(ctx, userID, func(c *cart.Cart) error {
		return c.RemoveFromCart(req.ProductID, req.Variant)
	})
}

// ApplyCoupon validates code against the coupon table and the cart total
func (s *Service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartResponse, error) {
	return s.mutate(ctx, userID, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return shared.NewDomainError("CART_EMPTY", "Add items before applying a coupon")
		}
		d, err := s.coupons.Quote(ctx, code, c.Total)
		if err != nil {
			return err
		}
		return c.ApplyCoupon(d.Code, d.Discount)
	})
}

// RemoveCoupon clears the discount
func (s *Service) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	return s.mutate(ctx, userID, func(c *cart.Cart) error {
		c.RemoveCoupon()
		return nil
	})
}

// Clear deletes the customer's cart
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.store.Delete(ctx, userID)
}

func (s *Service) mutate(ctx context.Context, userID uuid.UUID, fn func(c *cart.Cart) error) (*CartResponse, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	s.requote(ctx, c)
	if err := s.store.Save(ctx, userID, c); err != nil {
		return nil, err
	}
	return ToCartResponse(c), nil
}

// requote keeps an applied coupon in line with the current total and drops
// it once it no longer applies
func (s *Service) requote(ctx context.Context, c *cart.Cart) {
	if c.CouponCode == "" {
		return
	}
	if c.IsEmpty() {
		c.RemoveCoupon()
		return
	}
	d, err := s.coupons.Quote(ctx, c.CouponCode, c.Total)
	if err != nil {
		s.logger.Debug("Dropping coupon from cart", zap.String("code", c.CouponCode), zap.Error(err))
		c.RemoveCoupon()
		return
	}
	if !d.Discount.Equals(c.Discount) {
		_ = c.ApplyCoupon(d.Code, d.Discount)
	}
}

func quantityOf(c *cart.Cart, productID uuid.UUID) int {
	n := 0
	for _, it := range c.Items {
		if it.ProductID == productID {
			n += it.Quantity
		}
	}
	return n
}
