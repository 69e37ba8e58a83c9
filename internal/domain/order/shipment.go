package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/wellnest/backend/internal/domain/shared"
)

// ShippingMethod is the fulfilment channel chosen for an order. An order has
// at most one active method at a time
type ShippingMethod string

const (
	ShippingMethodNone       ShippingMethod = ""
	ShippingMethodShiprocket ShippingMethod = "shiprocket"
	ShippingMethodDelhivery  ShippingMethod = "delhivery"
	ShippingMethodManual     ShippingMethod = "manual"
)

// ShippingState is the explicit shipment state. Each state implies which
// Shipment fields are populated
type ShippingState string

const (
	ShippingStateNone                  ShippingState = "none"
	ShippingStateShiprocketOrder       ShippingState = "shiprocket_order_created"
	ShippingStateShiprocketAWBAssigned ShippingState = "shiprocket_awb_assigned"
	ShippingStateShiprocketCancelled   ShippingState = "shiprocket_cancelled"
	ShippingStateDelhiveryCreated      ShippingState = "delhivery_created"
	ShippingStateManualRecorded        ShippingState = "manual_recorded"
)

// IsValid checks if the state is recognised
func (s ShippingState) IsValid() bool {
	switch s {
	case ShippingStateNone, ShippingStateShiprocketOrder, ShippingStateShiprocketAWBAssigned,
		ShippingStateShiprocketCancelled, ShippingStateDelhiveryCreated, ShippingStateManualRecorded:
		return true
	}
	return false
}

// IsActive reports whether the state holds a live shipment with some carrier
func (s ShippingState) IsActive() bool {
	switch s {
	case ShippingStateShiprocketOrder, ShippingStateShiprocketAWBAssigned,
		ShippingStateDelhiveryCreated, ShippingStateManualRecorded:
		return true
	}
	return false
}

// Shipping errors
var (
	ErrShippingMethodConflict = shared.NewDomainError("SHIPPING_METHOD_CONFLICT", "Order already has an active shipment with another method")
	ErrShipmentNotAllowed     = shared.NewDomainError("SHIPMENT_NOT_ALLOWED", "Order cannot be shipped in its current state")
	ErrShipmentStep           = shared.NewDomainError("INVALID_SHIPMENT_STEP", "Shipment step is not valid for the current shipping state")
)

// Shipment is the tagged shipping record. Method and State say which of the
// identifier fields are authoritative
type Shipment struct {
	Method               ShippingMethod
	State                ShippingState
	ShiprocketOrderID    string
	ShiprocketShipmentID string
	CourierID            int
	CourierName          string
	TrackingID           string
	LabelURL             string
	DelhiveryWaybill     string
	ManualNote           string
	UpdatedAt            *time.Time
}

// NoShipment returns the initial shipment record
func NoShipment() Shipment {
	return Shipment{Method: ShippingMethodNone, State: ShippingStateNone}
}

// IsManual reports whether the tracking details were typed in by staff
func (s Shipment) IsManual() bool {
	return s.Method == ShippingMethodManual
}

// IsActive reports whether a carrier currently owns the shipment
func (s Shipment) IsActive() bool {
	return s.State.IsActive()
}

// HasCarrierInvoice reports whether the carrier can serve a hosted invoice
func (s Shipment) HasCarrierInvoice() bool {
	return s.ShiprocketOrderID != ""
}

// Tracking returns the authoritative tracking number for the active method
func (s Shipment) Tracking() string {
	switch s.State {
	case ShippingStateShiprocketAWBAssigned, ShippingStateManualRecorded:
		return s.TrackingID
	case ShippingStateDelhiveryCreated:
		return s.DelhiveryWaybill
	}
	return ""
}

// AvailableActions lists the shipment operations staff may perform next
func (s Shipment) AvailableActions() []string {
	switch s.State {
	case ShippingStateNone, ShippingStateShiprocketCancelled:
		return []string{"shiprocket_create", "delhivery_create", "manual_record"}
	case ShippingStateShiprocketOrder:
		return []string{"shiprocket_rates", "shiprocket_assign_awb", "shiprocket_cancel"}
	case ShippingStateShiprocketAWBAssigned:
		return []string{"shiprocket_label", "shiprocket_cancel"}
	}
	return []string{}
}

// CanStartShipment checks that a new shipment with method may be created.
// The guard runs before any carrier call is made
func (o *Order) CanStartShipment(method ShippingMethod) error {
	if o.Status == StatusCancelled || o.Status == StatusDelivered {
		return ErrShipmentNotAllowed
	}
	if o.PaymentMode == PaymentModeOnline && o.PaymentStatus != PaymentCompleted {
		return shared.NewDomainError("SHIPMENT_NOT_ALLOWED", "Online order has not been paid")
	}
	if o.Shipment.IsActive() {
		if o.Shipment.Method == method {
			return shared.NewDomainError("SHIPMENT_EXISTS", fmt.Sprintf("A %s shipment already exists for this order", method))
		}
		return ErrShippingMethodConflict
	}
	return nil
}

// RecordShiprocketOrder stores the Shiprocket order created for this order
func (o *Order) RecordShiprocketOrder(shiprocketOrderID, shipmentID string, now time.Time) error {
	if err := o.CanStartShipment(ShippingMethodShiprocket); err != nil {
		return err
	}
	if shiprocketOrderID == "" || shipmentID == "" {
		return shared.NewDomainError("INVALID_SHIPMENT", "Shiprocket order and shipment ids are required")
	}
	o.Shipment = Shipment{
		Method:               ShippingMethodShiprocket,
		State:                ShippingStateShiprocketOrder,
		ShiprocketOrderID:    shiprocketOrderID,
		ShiprocketShipmentID: shipmentID,
		UpdatedAt:            &now,
	}
	o.addHistory(o.Status, "Shiprocket order "+shiprocketOrderID+" created", now)
	return nil
}

// RecordShiprocketAWB stores the courier assignment and marks the order shipped
func (o *Order) RecordShiprocketAWB(awb, courierName string, courierID int, now time.Time) error {
	if o.Shipment.Method != ShippingMethodShiprocket || o.Shipment.State != ShippingStateShiprocketOrder {
		return ErrShipmentStep
	}
	if strings.TrimSpace(awb) == "" {
		return shared.NewDomainError("INVALID_SHIPMENT", "AWB code is required")
	}
	o.Shipment.State = ShippingStateShiprocketAWBAssigned
	o.Shipment.TrackingID = awb
	o.Shipment.CourierName = courierName
	o.Shipment.CourierID = courierID
	o.Shipment.UpdatedAt = &now
	return o.markShipped(fmt.Sprintf("Shipped via %s, AWB %s", courierLabel(courierName, "Shiprocket"), awb), now)
}

// RecordShiprocketLabel stores the label download link
func (o *Order) RecordShiprocketLabel(labelURL string, now time.Time) error {
	if o.Shipment.State != ShippingStateShiprocketAWBAssigned {
		return ErrShipmentStep
	}
	o.Shipment.LabelURL = labelURL
	o.Shipment.UpdatedAt = &now
	o.UpdatedAt = now
	return nil
}

// CanCancelShiprocket reports whether the order has a live Shiprocket
// shipment that may still be withdrawn. Delivered and cancelled orders keep
// their shipment
func (o *Order) CanCancelShiprocket() error {
	if o.Status.IsTerminal() {
		return ErrShipmentNotAllowed
	}
	if o.Shipment.Method != ShippingMethodShiprocket || !o.Shipment.IsActive() {
		return ErrShipmentStep
	}
	return nil
}

// CancelShiprocket records a cancelled Shiprocket shipment. The order goes
// back to Processing and may be shipped again with any method
func (o *Order) CancelShiprocket(now time.Time) error {
	if err := o.CanCancelShiprocket(); err != nil {
		return err
	}
	o.Shipment.State = ShippingStateShiprocketCancelled
	o.Shipment.UpdatedAt = &now
	note := "Shiprocket shipment cancelled"
	if o.Status == StatusShipped {
		o.Status = StatusProcessing
	}
	o.addHistory(o.Status, note, now)
	return nil
}

// RecordDelhiveryWaybill stores a Delhivery waybill and marks the order shipped
func (o *Order) RecordDelhiveryWaybill(waybill string, now time.Time) error {
	if err := o.CanStartShipment(ShippingMethodDelhivery); err != nil {
		return err
	}
	if strings.TrimSpace(waybill) == "" {
		return shared.NewDomainError("INVALID_SHIPMENT", "Waybill is required")
	}
	o.Shipment = Shipment{
		Method:           ShippingMethodDelhivery,
		State:            ShippingStateDelhiveryCreated,
		CourierName:      "Delhivery",
		DelhiveryWaybill: waybill,
		UpdatedAt:        &now,
	}
	return o.markShipped("Shipped via Delhivery, waybill "+waybill, now)
}

// RecordManualShipment stores tracking details entered by staff, bypassing the carriers
func (o *Order) RecordManualShipment(trackingID, courierName, note string, now time.Time) error {
	if err := o.CanStartShipment(ShippingMethodManual); err != nil {
		return err
	}
	trackingID = strings.TrimSpace(trackingID)
	courierName = strings.TrimSpace(courierName)
	if trackingID == "" || courierName == "" {
		return shared.NewDomainError("INVALID_SHIPMENT", "Tracking id and courier name are required")
	}
	o.Shipment = Shipment{
		Method:      ShippingMethodManual,
		State:       ShippingStateManualRecorded,
		CourierName: courierName,
		TrackingID:  trackingID,
		ManualNote:  strings.TrimSpace(note),
		UpdatedAt:   &now,
	}
	msg := fmt.Sprintf("Shipped via %s, tracking %s", courierName, trackingID)
	if o.Shipment.ManualNote != "" {
		msg += " (" + o.Shipment.ManualNote + ")"
	}
	return o.markShipped(msg, now)
}

func (o *Order) markShipped(note string, now time.Time) error {
	if o.Status == StatusShipped {
		o.addHistory(o.Status, note, now)
		return nil
	}
	if !o.Status.CanTransitionTo(StatusShipped) {
		return ErrShipmentNotAllowed
	}
	o.Status = StatusShipped
	o.addHistory(StatusShipped, note, now)
	return nil
}

func courierLabel(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
