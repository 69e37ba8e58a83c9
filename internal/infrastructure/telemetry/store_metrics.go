package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// StoreMetrics records storefront business events. A nil *StoreMetrics is
// valid and records nothing, so services can run without telemetry.
type StoreMetrics struct {
	ordersPlaced    *Counter
	orderValue      *Histogram
	paymentOutcomes *Counter
	shipmentActions *Counter
	statusChanges   *Counter
	externalRetries *Counter
}

// NewStoreMetrics creates the storefront instruments on meter
func NewStoreMetrics(meter metric.Meter) (*StoreMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &StoreMetrics{}
	var err error

	if m.ordersPlaced, err = NewCounter(meter,
		"wellnest_orders_placed_total",
		"Orders placed, by payment mode",
		"{orders}"); err != nil {
		return nil, err
	}
	if m.orderValue, err = NewHistogram(meter, HistogramOpts{
		Name:        "wellnest_order_value",
		Description: "Final order value",
		Unit:        "INR",
		Boundaries:  OrderValueBuckets,
	}); err != nil {
		return nil, err
	}
	if m.paymentOutcomes, err = NewCounter(meter,
		"wellnest_payment_outcomes_total",
		"Settled online payments, by provider and status",
		"{payments}"); err != nil {
		return nil, err
	}
	if m.shipmentActions, err = NewCounter(meter,
		"wellnest_shipment_actions_total",
		"Shipment actions recorded, by carrier",
		"{actions}"); err != nil {
		return nil, err
	}
	if m.statusChanges, err = NewCounter(meter,
		"wellnest_order_status_changes_total",
		"Admin order status changes, by target status",
		"{changes}"); err != nil {
		return nil, err
	}
	if m.externalRetries, err = NewCounter(meter,
		"wellnest_external_retries_total",
		"Retried calls to payment gateways and carriers",
		"{retries}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOrderPlaced counts an order and records its final value
func (m *StoreMetrics) RecordOrderPlaced(ctx context.Context, paymentMode, provider string, finalPrice decimal.Decimal) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrPaymentMode.String(paymentMode), AttrPaymentProvider.String(provider)}
	m.ordersPlaced.Inc(ctx, attrs...)
	m.orderValue.Record(ctx, finalPrice.InexactFloat64(), attrs...)
}

// RecordPayment counts a settled payment
func (m *StoreMetrics) RecordPayment(ctx context.Context, provider, status string) {
	if m == nil {
		return
	}
	m.paymentOutcomes.Inc(ctx, AttrPaymentProvider.String(provider), AttrPaymentStatus.String(status))
}

// RecordShipment counts a shipment action such as shiprocket/awb or manual/record
func (m *StoreMetrics) RecordShipment(ctx context.Context, carrier, action string) {
	if m == nil {
		return
	}
	m.shipmentActions.Inc(ctx, AttrCarrier.String(carrier), AttrShipmentAction.String(action))
}

// RecordStatusChange counts an admin status change
func (m *StoreMetrics) RecordStatusChange(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.statusChanges.Inc(ctx, AttrOrderStatus.String(status))
}

// RecordRetry matches retry.Observer
func (m *StoreMetrics) RecordRetry(op string, _ int, _ error) {
	if m == nil {
		return
	}
	m.externalRetries.Inc(context.Background(), AttrOperation.String(op))
}
