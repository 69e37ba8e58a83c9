package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ProductListFilter represents filter options for the storefront listing
type ProductListFilter struct {
	Search   string `form:"search"`
	InStock  bool   `form:"in_stock"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at title price"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Price       valueobject.Money `json:"price"`
	MRP         valueobject.Money `json:"mrp"`
	Stock       int               `json:"stock"`
	InStock     bool              `json:"in_stock"`
	Variants    []string          `json:"variants"`
	WeightGrams int               `json:"weight_grams"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	variants := p.Variants
	if variants == nil {
		variants = []string{}
	}
	return ProductResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		Price:       p.Price,
		MRP:         p.MRP,
		Stock:       p.Stock,
		InStock:     p.Stock > 0,
		Variants:    variants,
		WeightGrams: p.WeightGrams,
		CreatedAt:   p.CreatedAt,
	}
}

// ToProductResponses converts a slice of domain Products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}

// ValidateCouponRequest asks what a code is worth on a subtotal
type ValidateCouponRequest struct {
	Code     string            `json:"code" binding:"required,max=40"`
	Subtotal valueobject.Money `json:"subtotal"`
}

// CouponQuote is the discount a coupon grants on a subtotal
type CouponQuote struct {
	Code     string            `json:"code"`
	Discount valueobject.Money `json:"discount"`
	Payable  valueobject.Money `json:"payable"`
}
