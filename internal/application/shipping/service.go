// Package shipping drives the admin shipment flows. Every operation checks
// the order's shipping guard before a carrier is called.
package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Shipping errors
var (
	ErrCarrierDisabled = shared.NewDomainError("CARRIER_NOT_CONFIGURED", "This carrier is not enabled")
	ErrNoCourier       = shared.NewDomainError("NO_COURIER_AVAILABLE", "No courier serves this pincode")
)

// ManualShipmentInput is tracking information entered by staff
type ManualShipmentInput struct {
	TrackingID  string `json:"tracking_id" binding:"required,max=100"`
	CourierName string `json:"courier_name" binding:"required,max=100"`
	Note        string `json:"note" binding:"max=500"`
}

// AssignAWBInput optionally pins a courier; zero lets Shiprocket choose
type AssignAWBInput struct {
	CourierID int `json:"courier_id" binding:"min=0"`
}

// ServiceConfig holds the dependencies of the shipping service
type ServiceConfig struct {
	Orders order.Repository
	// Products is optional and used for parcel weight
	Products catalog.ProductRepository
	// Users is optional and used for the customer's email on carrier orders
	Users      identity.UserRepository
	Shiprocket shipping.ShiprocketCarrier
	Delhivery  shipping.DelhiveryCarrier
	// Parcel holds default dimensions and the fallback weight
	Parcel  shipping.ParcelSpec
	Metrics *telemetry.StoreMetrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Service records shipments on orders
type Service struct {
	orders     order.Repository
	products   catalog.ProductRepository
	users      identity.UserRepository
	shiprocket shipping.ShiprocketCarrier
	delhivery  shipping.DelhiveryCarrier
	parcel     shipping.ParcelSpec
	metrics    *telemetry.StoreMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new shipping service. A nil carrier disables its flow
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		orders:     cfg.Orders,
		products:   cfg.Products,
		users:      cfg.Users,
		shiprocket: cfg.Shiprocket,
		delhivery:  cfg.Delhivery,
		parcel:     cfg.Parcel,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.parcel.WeightKg <= 0 {
		s.parcel.WeightKg = 0.5
	}
	return s
}

// Rates lists Shiprocket courier quotes for the order's pincode
func (s *Service) Rates(ctx context.Context, orderID uuid.UUID) ([]shipping.CourierRate, error) {
	if s.shiprocket == nil {
		return nil, ErrCarrierDisabled
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusCancelled || o.Status == order.StatusDelivered {
		return nil, order.ErrShipmentNotAllowed
	}
	rates, err := s.shiprocket.Rates(ctx, shipping.RateQuery{
		DeliveryPincode: o.ShippingAddress.Pincode,
		WeightKg:        s.parcelFor(ctx, o).WeightKg,
		COD:             collectsCash(o),
		DeclaredValue:   o.FinalPrice,
	})
	if err != nil {
		return nil, carrierError(err)
	}
	return rates, nil
}

// CreateShiprocketOrder registers the order with Shiprocket
func (s *Service) CreateShiprocketOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	if s.shiprocket == nil {
		return nil, ErrCarrierDisabled
	}
	return s.run(ctx, orderID, "shiprocket", "create_order", func(ctx context.Context, o *order.Order) error {
		if err := o.CanStartShipment(order.ShippingMethodShiprocket); err != nil {
			return err
		}
		created, err := s.shiprocket.CreateOrder(ctx, s.shipmentRequest(ctx, o))
		if err != nil {
			return carrierError(err)
		}
		return o.RecordShiprocketOrder(created.OrderID, created.ShipmentID, s.now())
	})
}

// AssignAWB assigns a courier to the Shiprocket shipment and marks the order shipped
func (s *Service) AssignAWB(ctx context.Context, orderID uuid.UUID, in AssignAWBInput) (*order.Order, error) {
	if s.shiprocket == nil {
		return nil, ErrCarrierDisabled
	}
	return s.run(ctx, orderID, "shiprocket", "assign_awb", func(ctx context.Context, o *order.Order) error {
		if o.Shipment.State != order.ShippingStateShiprocketOrder {
			return order.ErrShipmentStep
		}
		awb, err := s.shiprocket.AssignAWB(ctx, o.Shipment.ShiprocketShipmentID, in.CourierID)
		if err != nil {
			return carrierError(err)
		}
		return o.RecordShiprocketAWB(awb.AWB, awb.CourierName, awb.CourierID, s.now())
	})
}

// Label returns the Shiprocket label URL, generating it on first use
func (s *Service) Label(ctx context.Context, orderID uuid.UUID) (string, error) {
	if s.shiprocket == nil {
		return "", ErrCarrierDisabled
	}
	o, err := s.run(ctx, orderID, "shiprocket", "label", func(ctx context.Context, o *order.Order) error {
		if o.Shipment.State != order.ShippingStateShiprocketAWBAssigned {
			return order.ErrShipmentStep
		}
		if o.Shipment.LabelURL != "" {
			return errUnchanged
		}
		url, err := s.shiprocket.GenerateLabel(ctx, o.Shipment.ShiprocketShipmentID)
		if err != nil {
			return carrierError(err)
		}
		return o.RecordShiprocketLabel(url, s.now())
	})
	if err != nil {
		return "", err
	}
	return o.Shipment.LabelURL, nil
}

// CancelShiprocket cancels the Shiprocket order; the order may then be shipped another way
func (s *Service) CancelShiprocket(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	if s.shiprocket == nil {
		return nil, ErrCarrierDisabled
	}
	return s.run(ctx, orderID, "shiprocket", "cancel", func(ctx context.Context, o *order.Order) error {
		if err := o.CanCancelShiprocket(); err != nil {
			return err
		}
		if err := s.shiprocket.Cancel(ctx, o.Shipment.ShiprocketOrderID); err != nil {
			return carrierError(err)
		}
		return o.CancelShiprocket(s.now())
	})
}

// CreateDelhiveryShipment books a Delhivery shipment and marks the order shipped
func (s *Service) CreateDelhiveryShipment(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	if s.delhivery == nil {
		return nil, ErrCarrierDisabled
	}
	return s.run(ctx, orderID, "delhivery", "create_shipment", func(ctx context.Context, o *order.Order) error {
		if err := o.CanStartShipment(order.ShippingMethodDelhivery); err != nil {
			return err
		}
		wb, err := s.delhivery.CreateShipment(ctx, s.shipmentRequest(ctx, o))
		if err != nil {
			return carrierError(err)
		}
		return o.RecordDelhiveryWaybill(wb.Waybill, s.now())
	})
}

// RecordManualShipment stores tracking details for a parcel sent outside the carriers
func (s *Service) RecordManualShipment(ctx context.Context, orderID uuid.UUID, in ManualShipmentInput) (*order.Order, error) {
	return s.run(ctx, orderID, "manual", "record", func(_ context.Context, o *order.Order) error {
		return o.RecordManualShipment(in.TrackingID, in.CourierName, in.Note, s.now())
	})
}

// errUnchanged ends a step that had nothing to record
var errUnchanged = errors.New("shipment unchanged")

// run loads the order, applies step and saves it with the version check.
// A carrier call that succeeded before a failed save is logged with its ids
func (s *Service) run(ctx context.Context, orderID uuid.UUID, carrier, action string, step func(context.Context, *order.Order) error) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipping", action)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID.String(), telemetry.SpanAttrCarrier, carrier)

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := step(ctx, o); err != nil {
		if errors.Is(err, errUnchanged) {
			return o, nil
		}
		telemetry.RecordError(span, err)
		logger.For(ctx, s.logger).Warn("Shipment step failed",
			zap.String("order_number", o.OrderNumber),
			zap.String("carrier", carrier),
			zap.String("action", action),
			zap.Error(err))
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		logger.For(ctx, s.logger).Error("Carrier call succeeded but order was not saved",
			zap.String("order_number", o.OrderNumber),
			zap.String("carrier", carrier),
			zap.String("action", action),
			zap.String("shiprocket_order_id", o.Shipment.ShiprocketOrderID),
			zap.String("tracking_id", o.Shipment.Tracking()),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordShipment(ctx, carrier, action)
	logger.For(ctx, s.logger).Info("Shipment updated",
		zap.String("order_number", o.OrderNumber),
		zap.String("carrier", carrier),
		zap.String("action", action),
		zap.String("state", string(o.Shipment.State)))
	return o, nil
}

func (s *Service) shipmentRequest(ctx context.Context, o *order.Order) shipping.ShipmentRequest {
	lines := make([]shipping.Line, len(o.Items))
	for i, it := range o.Items {
		name := it.Title
		if it.Variant != "" {
			name += " (" + it.Variant + ")"
		}
		lines[i] = shipping.Line{
			SKU:      it.ProductID.String()[:8] + variantSuffix(it.Variant),
			Name:     name,
			Quantity: it.Quantity,
			Price:    it.Price,
		}
	}
	req := shipping.ShipmentRequest{
		OrderNumber:    o.OrderNumber,
		OrderDate:      o.CreatedAt,
		Address:        o.ShippingAddress,
		Lines:          lines,
		SubTotal:       o.TotalPrice,
		Discount:       o.Discount,
		ShippingCharge: o.DeliveryCharge,
		CODAmount:      valueobject.ZeroINR(),
		Parcel:         s.parcelFor(ctx, o),
	}
	if collectsCash(o) {
		req.CODAmount = o.FinalPrice
	}
	if s.users != nil {
		if u, err := s.users.FindByID(ctx, o.UserID); err == nil {
			req.Email = u.Email
		}
	}
	return req
}

// parcelFor sums catalog weights, falling back to the configured default
func (s *Service) parcelFor(ctx context.Context, o *order.Order) shipping.ParcelSpec {
	parcel := s.parcel
	if s.products == nil {
		return parcel
	}
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Debug("Using default parcel weight", zap.Error(err))
		return parcel
	}
	grams := make(map[uuid.UUID]int, len(products))
	for _, p := range products {
		grams[p.ID] = p.WeightGrams
	}
	total := 0
	for _, it := range o.Items {
		if grams[it.ProductID] <= 0 {
			return parcel
		}
		total += grams[it.ProductID] * it.Quantity
	}
	if total > 0 {
		parcel.WeightKg = float64(total) / 1000
	}
	return parcel
}

func collectsCash(o *order.Order) bool {
	return o.PaymentMode == order.PaymentModeCOD && o.PaymentStatus == order.PaymentPending
}

func variantSuffix(v string) string {
	if v == "" {
		return ""
	}
	return "-" + v
}

func carrierError(err error) error {
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, shipping.ErrCarrierNotConfigured):
		return ErrCarrierDisabled
	case errors.Is(err, shipping.ErrNoCourierAvailable):
		return ErrNoCourier
	case errors.Is(err, shipping.ErrCarrierUnavailable), errors.Is(err, shipping.ErrCarrierUnauthorized):
		return shared.WrapDomainError(shared.ErrExternalUnavailable.Code, shared.ErrExternalUnavailable.Message, err)
	case errors.Is(err, shipping.ErrCarrierRequestFailed), errors.Is(err, shipping.ErrCarrierInvalidResponse):
		return shared.WrapDomainError("CARRIER_ERROR", "Carrier rejected the request", err)
	}
	return err
}
