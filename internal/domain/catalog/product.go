package catalog

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ProductStatus represents whether a product is listed in the storefront
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a sellable item in the storefront catalog
type Product struct {
	shared.Aggregate
	Slug        string
	Title       string
	Description string
	Image       string
	Price       valueobject.Money
	MRP         valueobject.Money
	Stock       int
	Variants    []string
	WeightGrams int
	Status      ProductStatus
}

// NewProduct creates an active product with no stock
func NewProduct(slug, title string, price valueobject.Money) (*Product, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	title = strings.TrimSpace(title)
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Product slug cannot be empty")
	}
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Product title cannot be empty")
	}
	if !price.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product price must be positive")
	}

	return &Product{
		Aggregate: shared.NewAggregate(time.Now()),
		Slug:      slug,
		Title:     title,
		Price:     price,
		MRP:       price,
		Status:    ProductStatusActive,
	}, nil
}

// SetStock replaces the on-hand quantity
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	p.Stock = stock
	p.UpdatedAt = time.Now()
	return nil
}

// IsActive returns true if the product can be bought
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// HasVariant reports whether variant is purchasable for this product.
// Products without variants only accept the empty variant
func (p *Product) HasVariant(variant string) bool {
	if len(p.Variants) == 0 {
		return variant == ""
	}
	return slices.Contains(p.Variants, variant)
}

// CanFulfil reports whether qty units are in stock
func (p *Product) CanFulfil(qty int) bool {
	return qty > 0 && p.Stock >= qty
}

// StockDecrement is one line of a batched stock update
type StockDecrement struct {
	ProductID uuid.UUID
	Quantity  int
}

// MergeDecrements collapses lines for the same product so each row is touched once
func MergeDecrements(lines []StockDecrement) []StockDecrement {
	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]StockDecrement, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}
