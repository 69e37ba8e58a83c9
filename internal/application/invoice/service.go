package invoice

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const defaultLinkExpiry = 15 * time.Minute

// ArchiveStore keeps rendered invoices and hands out time-limited links
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// ArchiveKey is the object key of an order's archived invoice
func ArchiveKey(orderNumber string) string {
	return "invoices/" + url.PathEscape(orderNumber) + ".pdf"
}

// ArchiveResult points at an archived invoice
type ArchiveResult struct {
	OrderNumber string    `json:"order_number"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service serves order invoices
type Service struct {
	orders     order.Repository
	sources    map[Kind]Source
	archive    ArchiveStore
	linkExpiry time.Duration
	logger     *zap.Logger
}

// Option configures the Service
type Option func(*Service)

// WithArchive enables Archive
func WithArchive(store ArchiveStore, linkExpiry time.Duration) Option {
	return func(s *Service) {
		s.archive = store
		if linkExpiry > 0 {
			s.linkExpiry = linkExpiry
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates the invoice service. Sources are keyed by their Kind
func NewService(orders order.Repository, sources []Source, opts ...Option) *Service {
	s := &Service{
		orders:     orders,
		sources:    make(map[Kind]Source, len(sources)),
		linkExpiry: defaultLinkExpiry,
		logger:     zap.NewNop(),
	}
	for _, src := range sources {
		if src != nil {
			s.sources[src.Kind()] = src
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the invoice of any order (admin)
func (s *Service) Get(ctx context.Context, orderID uuid.UUID, kind Kind) (*Document, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, o, kind)
}

// GetForUser returns the invoice of an order the user placed
func (s *Service) GetForUser(ctx context.Context, userID, orderID uuid.UUID, kind Kind) (*Document, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, order.ErrNotOwner
	}
	return s.render(ctx, o, kind)
}

func (s *Service) render(ctx context.Context, o *order.Order, kind Kind) (*Document, error) {
	src, ok := s.sources[kind]
	if !ok {
		if kind == KindCarrier {
			return nil, shared.NewDomainError("INVALID_STATE", "Carrier invoices are not configured")
		}
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown invoice source")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "render")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderNumber, o.OrderNumber, telemetry.SpanAttrInvoiceSource, string(kind))

	doc, err := src.Invoice(ctx, o)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.For(ctx, s.logger).Warn("invoice unavailable",
			zap.String("order_number", o.OrderNumber),
			zap.String("source", string(kind)),
			zap.Error(err))
		return nil, err
	}
	s.logger.Debug("invoice rendered",
		zap.String("order_number", o.OrderNumber),
		zap.String("source", string(kind)),
		zap.Int("bytes", len(doc.Data)))
	return doc, nil
}

// Archive stores the generated invoice and returns a presigned link to it
func (s *Service) Archive(ctx context.Context, orderID uuid.UUID) (*ArchiveResult, error) {
	if s.archive == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Invoice archive is not configured")
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	doc, err := s.render(ctx, o, KindGenerated)
	if err != nil {
		return nil, err
	}

	key := ArchiveKey(o.OrderNumber)
	if err := s.archive.Put(ctx, key, doc.Data, doc.ContentType); err != nil {
		return nil, unavailable(err)
	}
	link, expiresAt, err := s.archive.PresignGet(ctx, key, s.linkExpiry)
	if err != nil {
		return nil, unavailable(err)
	}

	logger.For(ctx, s.logger).Info("invoice archived",
		zap.String("order_number", o.OrderNumber),
		zap.String("key", key))
	return &ArchiveResult{
		OrderNumber: o.OrderNumber,
		Key:         key,
		URL:         link,
		ExpiresAt:   expiresAt,
	}, nil
}

func unavailable(err error) error {
	return shared.WrapDomainError(shared.ErrExternalUnavailable.Code, shared.ErrExternalUnavailable.Message, err)
}
