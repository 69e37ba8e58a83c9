package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ order.Repository = (*GormOrderRepository)(nil)

// FindByID finds an order by ID with items and history
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByNumber finds an order by its human readable number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.first(ctx, "order_number = ?", strings.TrimSpace(orderNumber))
}

// FindByGatewayReference finds an order by its Razorpay order id or PhonePe
// merchant transaction id
func (r *GormOrderRepository) FindByGatewayReference(ctx context.Context, provider order.PaymentProvider, reference string) (*order.Order, error) {
	if reference == "" {
		return nil, shared.ErrNotFound
	}
	switch provider {
	case order.ProviderRazorpay:
		return r.first(ctx, "razorpay_order_id = ?", reference)
	case order.ProviderPhonePe:
		return r.first(ctx, "phonepe_order_id = ?", reference)
	default:
		return nil, shared.ErrNotFound
	}
}

// FindByUser lists a customer's orders, newest first
func (r *GormOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	return r.List(ctx, order.ListFilter{Filter: filter, UserID: &userID})
}

// List returns orders matching the filter and the total count
func (r *GormOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := r.applyFilter(conn(ctx, r.db).Model(&models.OrderModel{}), filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := r.preload(query).
		Order(orderBy(orderSort, filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainOrders(rows), total, nil
}

// FindPendingOnline returns a page of online orders awaiting payment that
// were created before q.OlderThan, keyed on (created_at, id). Orders whose
// gateway session was never opened are skipped
func (r *GormOrderRepository) FindPendingOnline(ctx context.Context, q order.PendingQuery) ([]order.Order, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	query := r.preload(conn(ctx, r.db)).
		Where("payment_mode = ? AND payment_status = ? AND status = ? AND created_at < ?",
			order.PaymentModeOnline, order.PaymentPending, order.StatusPending, q.OlderThan).
		Where("(payment_provider = ? AND razorpay_order_id <> '') OR (payment_provider = ? AND phonepe_order_id <> '')",
			order.ProviderRazorpay, order.ProviderPhonePe)
	if !q.After.IsZero() {
		query = query.Where("created_at > ? OR (created_at = ? AND id > ?)",
			q.After.CreatedAt, q.After.CreatedAt, q.After.ID)
	}
	var rows []models.OrderModel
	if err := query.
		Order("created_at ASC, id ASC").
		Limit(q.Limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// ExistsByNumber checks if an order number is taken
func (r *GormOrderRepository) ExistsByNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.OrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new order with its items and history
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	if err := o.VerifyPricing(); err != nil {
		return err
	}
	err := conn(ctx, r.db).Create(models.OrderModelFromDomain(o)).Error
	return translate(err, shared.NewDomainError("ALREADY_EXISTS", "Order number already exists"))
}

// SaveWithLock writes status, payment and shipment changes under the version
// check and appends history entries not stored yet. Items never change after
// placement.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	if err := o.VerifyPricing(); err != nil {
		return err
	}
	now := time.Now()
	err := inTx(ctx, r.db, func(tx *gorm.DB) error {
		updates := models.OrderModelFromDomain(o).ToUpdateMap()
		updates["updated_at"] = now
		if err := updateVersion(tx, &models.OrderModel{}, o.ID, o.Version, updates); err != nil {
			return err
		}

		var stored int64
		if err := tx.Model(&models.OrderStatusModel{}).Where("order_id = ?", o.ID).Count(&stored).Error; err != nil {
			return err
		}
		rows := models.HistoryModels(o.ID, o.StatusHistory, int(stored))
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return err
	}
	o.Version++
	o.Touch(now)
	return nil
}

func (r *GormOrderRepository) first(ctx context.Context, query string, args ...any) (*order.Order, error) {
	return findOne(r.preload(conn(ctx, r.db)).Where(query, args...), (*models.OrderModel).ToDomain)
}

func (r *GormOrderRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
}

// applyFilter applies the listing filter without pagination
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter order.ListFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.PaymentMode != "" {
		query = query.Where("payment_mode = ?", filter.PaymentMode)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToUpper(s) + "%"
		query = query.Where("UPPER(order_number) LIKE ? OR UPPER(tracking_id) LIKE ?", pattern, pattern)
	}
	return query
}

func toDomainOrders(rows []models.OrderModel) []order.Order {
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders
}
