// Package order serves order history to customers and order management to staff.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	exportPageSize = 200
	// MaxExportRows caps one spreadsheet export
	MaxExportRows = 10000
)

// ErrExportTooLarge is returned when a filter matches more orders than one export holds
var ErrExportTooLarge = shared.NewDomainError("EXPORT_TOO_LARGE",
	fmt.Sprintf("Export is limited to %d orders, narrow the filter", MaxExportRows))

var indiaTZ = time.FixedZone("IST", 5*3600+1800)

// Exporter renders orders as a downloadable file
type Exporter interface {
	Orders(ctx context.Context, orders []order.Order) ([]byte, error)
}

// ServiceConfig holds the dependencies of the order service
type ServiceConfig struct {
	Orders   order.Repository
	Products catalog.ProductRepository
	Tx       shared.TxManager
	Exporter Exporter
	Metrics  *telemetry.StoreMetrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service reads orders and applies admin status changes
type Service struct {
	orders   order.Repository
	products catalog.ProductRepository
	tx       shared.TxManager
	exporter Exporter
	metrics  *telemetry.StoreMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new order service
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		orders:   cfg.Orders,
		products: cfg.Products,
		tx:       cfg.Tx,
		exporter: cfg.Exporter,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Get returns any order (admin)
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetForUser returns an order owned by userID. Someone else's order reads as
// not found
func (s *Service) GetForUser(ctx context.Context, userID, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, order.ErrNotOwner
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListForUser pages the customer's orders, newest first
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, filter MyOrdersFilter) (*OrderPage, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	orders, total, err := s.orders.FindByUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToOrderSummaries(orders), total, f.Page, f.PageSize)
	return &page, nil
}

// ListAll pages every order matching the admin filter
func (s *Service) ListAll(ctx context.Context, filter ListFilter) (*OrderPage, error) {
	f, err := toDomainFilter(filter)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToOrderSummaries(orders), total, f.Page, f.PageSize)
	return &page, nil
}

// UpdateStatus applies an admin status change. Cancelling an order whose
// stock was taken puts that stock back in the same transaction as the save
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "update_status")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, id.String(), telemetry.SpanAttrOrderStatus, req.Status)

	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	to := order.Status(req.Status)
	if err := o.UpdateStatus(to, strings.TrimSpace(req.Note), s.now()); err != nil {
		return nil, err
	}

	release := o.ReleaseStock()
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if len(release) > 0 {
			if err := s.products.RestoreStock(ctx, release); err != nil {
				return fmt.Errorf("restore stock: %w", err)
			}
		}
		return s.orders.SaveWithLock(ctx, o)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, string(to))
	logger.For(ctx, s.logger).Info("Order status changed",
		zap.String("order_number", o.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("restocked_lines", len(release)))
	if to == order.StatusCancelled && o.IsOnline() && o.PaymentStatus == order.PaymentCompleted {
		logger.For(ctx, s.logger).Warn("Paid order cancelled, refund must be issued from the gateway dashboard",
			zap.String("order_number", o.OrderNumber),
			zap.String("provider", string(o.PaymentProvider)),
			zap.String("payment_id", o.PaymentID),
			zap.String("amount", o.FinalPrice.String()))
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// Export renders every order matching filter, ignoring its paging
func (s *Service) Export(ctx context.Context, filter ListFilter) ([]byte, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "export")
	defer span.End()

	if s.exporter == nil {
		return nil, errors.New("order export is not configured")
	}
	f, err := toDomainFilter(filter)
	if err != nil {
		return nil, err
	}
	f.PageSize = exportPageSize

	var all []order.Order
	for page := 1; ; page++ {
		f.Page = page
		orders, total, err := s.orders.List(ctx, f)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if total > MaxExportRows {
			return nil, ErrExportTooLarge
		}
		all = append(all, orders...)
		if len(orders) < exportPageSize || int64(len(all)) >= total {
			break
		}
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderCount, len(all))

	data, err := s.exporter.Orders(ctx, all)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.For(ctx, s.logger).Info("Orders exported", zap.Int("orders", len(all)), zap.Int("bytes", len(data)))
	return data, nil
}

// toDomainFilter converts query parameters. Dates are calendar days in IST;
// To is inclusive
func toDomainFilter(in ListFilter) (order.ListFilter, error) {
	f := shared.DefaultFilter()
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 {
		f.PageSize = in.PageSize
	}
	if in.OrderBy != "" {
		f.OrderBy = in.OrderBy
	}
	if in.OrderDir != "" {
		f.OrderDir = in.OrderDir
	}
	f.Search = strings.TrimSpace(in.Search)

	out := order.ListFilter{
		Filter:        f,
		Status:        order.Status(in.Status),
		PaymentStatus: order.PaymentStatus(in.PaymentStatus),
		PaymentMode:   order.PaymentMode(in.PaymentMode),
	}
	if in.From != "" {
		t, err := time.ParseInLocation(time.DateOnly, in.From, indiaTZ)
		if err != nil {
			return out, shared.NewDomainError("INVALID_INPUT", "from must be a date like 2006-01-02")
		}
		out.From = &t
	}
	if in.To != "" {
		t, err := time.ParseInLocation(time.DateOnly, in.To, indiaTZ)
		if err != nil {
			return out, shared.NewDomainError("INVALID_INPUT", "to must be a date like 2006-01-02")
		}
		t = t.AddDate(0, 0, 1)
		out.To = &t
	}
	if out.From != nil && out.To != nil && !out.From.Before(*out.To) {
		return out, shared.NewDomainError("INVALID_INPUT", "from must not be after to")
	}
	return out, nil
}
