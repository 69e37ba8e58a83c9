package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared"
)

// ProductService serves the public catalog
type ProductService struct {
	productRepo catalog.ProductRepository
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// List retrieves active products with search and pagination
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (shared.Paginated[ProductResponse], error) {
	domainFilter := catalog.ProductFilter{Filter: shared.DefaultFilter(), InStock: filter.InStock}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = strings.TrimSpace(filter.Search)

	products, total, err := s.productRepo.List(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	return shared.NewPaginated(ToProductResponses(products), total, domainFilter.Page, domainFilter.PageSize), nil
}

// GetBySlug retrieves an active product by its URL slug
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, shared.ErrNotFound
	}
	response := ToProductResponse(product)
	return &response, nil
}

// GetByID retrieves a product by ID, including inactive ones
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}
