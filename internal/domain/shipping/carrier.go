package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ---------------------------------------------------------------------------
// Carrier Errors
// ---------------------------------------------------------------------------

var (
	ErrCarrierNotConfigured   = errors.New("shipping: carrier not configured")
	ErrCarrierUnavailable     = errors.New("shipping: carrier temporarily unavailable")
	ErrCarrierRequestFailed   = errors.New("shipping: carrier request failed")
	ErrCarrierInvalidResponse = errors.New("shipping: invalid carrier response")
	ErrCarrierUnauthorized    = errors.New("shipping: carrier rejected credentials")
	ErrNoCourierAvailable     = errors.New("shipping: no courier serves this pincode")
)

// ---------------------------------------------------------------------------
// Shipment Requests
// ---------------------------------------------------------------------------

// ParcelSpec is the physical parcel handed to the carrier
type ParcelSpec struct {
	WeightKg  float64
	LengthCm  float64
	BreadthCm float64
	HeightCm  float64
}

// Line is one product line in a carrier shipment
type Line struct {
	SKU      string
	Name     string
	Quantity int
	Price    valueobject.Money
}

// ShipmentRequest describes an order to a carrier
type ShipmentRequest struct {
	// OrderNumber is our order reference, sent as the carrier's channel order id
	OrderNumber string
	// OrderDate is when the order was placed
	OrderDate time.Time
	// Address is the delivery address
	Address valueobject.PostalAddress
	// Email of the customer, optional
	Email string
	// Lines are the items in the parcel
	Lines []Line
	// SubTotal is the invoice value of the parcel
	SubTotal valueobject.Money
	// Discount applied to the order
	Discount valueobject.Money
	// ShippingCharge billed to the customer
	ShippingCharge valueobject.Money
	// CODAmount is the amount to collect, zero for prepaid orders
	CODAmount valueobject.Money
	// Parcel is the package dimensions
	Parcel ParcelSpec
}

// IsCOD reports whether the carrier collects cash
func (r ShipmentRequest) IsCOD() bool {
	return r.CODAmount.IsPositive()
}

// RateQuery asks for courier quotes to a pincode
type RateQuery struct {
	DeliveryPincode string
	WeightKg        float64
	COD             bool
	DeclaredValue   valueobject.Money
}

// CourierRate is one courier quote
type CourierRate struct {
	CourierID     int
	CourierName   string
	Rate          valueobject.Money
	EstimatedDays int
	ETD           string
	Rating        float64
	COD           bool
}

// ShiprocketOrder is the result of creating a Shiprocket order
type ShiprocketOrder struct {
	OrderID    string
	ShipmentID string
	Status     string
}

// AWBAssignment is a courier assignment for a Shiprocket shipment
type AWBAssignment struct {
	AWB         string
	CourierID   int
	CourierName string
}

// Waybill is the result of a Delhivery shipment creation
type Waybill struct {
	Waybill string
	Status  string
	Remarks string
}

// ---------------------------------------------------------------------------
// Carriers
// ---------------------------------------------------------------------------

// ShiprocketCarrier is the multi-step Shiprocket flow
type ShiprocketCarrier interface {
	// Rates lists courier quotes for a delivery pincode
	Rates(ctx context.Context, query RateQuery) ([]CourierRate, error)
	// CreateOrder registers the order with Shiprocket
	CreateOrder(ctx context.Context, req ShipmentRequest) (*ShiprocketOrder, error)
	// AssignAWB assigns a courier. courierID 0 lets Shiprocket pick
	AssignAWB(ctx context.Context, shipmentID string, courierID int) (*AWBAssignment, error)
	// GenerateLabel returns the label download URL
	GenerateLabel(ctx context.Context, shipmentID string) (string, error)
	// InvoiceURL returns the carrier-hosted invoice URL for a Shiprocket order
	InvoiceURL(ctx context.Context, shiprocketOrderID string) (string, error)
	// Cancel cancels the Shiprocket order
	Cancel(ctx context.Context, shiprocketOrderID string) error
}

// DelhiveryCarrier creates a Delhivery shipment in one call
type DelhiveryCarrier interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (*Waybill, error)
}

// DocumentFetcher downloads a carrier-hosted document
type DocumentFetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}
