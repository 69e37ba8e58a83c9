package persistence

import (
	"context"

	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCouponRepository implements CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

var _ catalog.CouponRepository = (*GormCouponRepository)(nil)

// FindByCode finds a coupon by its normalized code
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*catalog.Coupon, error) {
	code = catalog.NormalizeCouponCode(code)
	if code == "" {
		return nil, catalog.ErrCouponCodeRequired
	}
	return findOne(conn(ctx, r.db), (*models.CouponModel).ToDomain, "code = ?", code)
}

// Save creates or updates a coupon
func (r *GormCouponRepository) Save(ctx context.Context, coupon *catalog.Coupon) error {
	return translate(conn(ctx, r.db).Save(models.CouponModelFromDomain(coupon)).Error, nil)
}
