package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/shared"
)

// ProductFilter narrows a catalog listing. An empty Status lists active
// products only.
type ProductFilter struct {
	shared.Filter
	Status  ProductStatus
	InStock bool
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)

	// FindByIDs returns the products that exist among ids, in no particular order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// List returns one page of matching products and the total match count
	List(ctx context.Context, filter ProductFilter) ([]Product, int64, error)

	Save(ctx context.Context, product *Product) error

	// DecrementStock applies every line in one transaction. If any product lacks
	// stock nothing is changed and shared.ErrInsufficientStock is returned
	DecrementStock(ctx context.Context, lines []StockDecrement) error

	// RestoreStock puts stock back for a cancelled order
	RestoreStock(ctx context.Context, lines []StockDecrement) error
}

// CouponRepository defines the interface for coupon lookup
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Save(ctx context.Context, coupon *Coupon) error
}
