package persistence

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return findOne(conn(ctx, r.db), (*models.ProductModel).ToDomain, "id = ?", id)
}

// FindBySlug finds a product by its URL slug
func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	return findOne(conn(ctx, r.db), (*models.ProductModel).ToDomain, "slug = ?", strings.ToLower(strings.TrimSpace(slug)))
}

// FindByIDs finds all products whose id is in ids
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// List returns active products matching the filter and the total count
func (r *GormProductRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	filter.Filter = filter.Normalize()
	query := r.matching(conn(ctx, r.db).Model(&models.ProductModel{}), filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductModel
	if err := query.
		Order(orderBy(productSort, filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, total, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	err := conn(ctx, r.db).Save(models.ProductModelFromDomain(product)).Error
	return translate(err, shared.NewDomainError("ALREADY_EXISTS", "A product with this slug already exists"))
}

// DecrementStock applies all lines in one transaction. Rows are updated in id
// order so concurrent checkouts lock them in the same sequence
func (r *GormProductRepository) DecrementStock(ctx context.Context, lines []catalog.StockDecrement) error {
	lines = sortedDecrements(lines)
	if len(lines) == 0 {
		return nil
	}
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		for _, l := range lines {
			if l.Quantity <= 0 {
				return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")
			}
			result := tx.Model(&models.ProductModel{}).
				Where("id = ? AND stock >= ?", l.ProductID, l.Quantity).
				Updates(map[string]any{
					"stock":   gorm.Expr("stock - ?", l.Quantity),
					"version": gorm.Expr("version + 1"),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrInsufficientStock
			}
		}
		return nil
	})
}

// RestoreStock adds quantities back in one transaction
func (r *GormProductRepository) RestoreStock(ctx context.Context, lines []catalog.StockDecrement) error {
	lines = sortedDecrements(lines)
	if len(lines) == 0 {
		return nil
	}
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		for _, l := range lines {
			if l.Quantity <= 0 {
				continue
			}
			if err := tx.Model(&models.ProductModel{}).
				Where("id = ?", l.ProductID).
				Updates(map[string]any{
					"stock":   gorm.Expr("stock + ?", l.Quantity),
					"version": gorm.Expr("version + 1"),
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormProductRepository) matching(query *gorm.DB, filter catalog.ProductFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(slug) LIKE ?", searchPattern, searchPattern)
	}

	status := filter.Status
	if status == "" {
		status = catalog.ProductStatusActive
	}
	query = query.Where("status = ?", string(status))
	if filter.InStock {
		query = query.Where("stock > 0")
	}
	return query
}

func sortedDecrements(lines []catalog.StockDecrement) []catalog.StockDecrement {
	merged := catalog.MergeDecrements(lines)
	slices.SortFunc(merged, func(a, b catalog.StockDecrement) int {
		return strings.Compare(a.ProductID.String(), b.ProductID.String())
	})
	return merged
}
