package shipping

import (
	"context"

	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/retry"
)

// RetryingShiprocket runs Shiprocket calls through the retry policy.
// CreateOrder is only sent again when Shiprocket cannot have received it
type RetryingShiprocket struct {
	next    shipping.ShiprocketCarrier
	retrier *retry.Retrier
	creates *retry.Retrier
}

// RetryShiprocket wraps a Shiprocket carrier
func RetryShiprocket(next shipping.ShiprocketCarrier, retrier *retry.Retrier) *RetryingShiprocket {
	return &RetryingShiprocket{next: next, retrier: retrier, creates: retrier.ForCreates()}
}

func (c *RetryingShiprocket) Rates(ctx context.Context, query shipping.RateQuery) ([]shipping.CourierRate, error) {
	return retry.Value(ctx, c.retrier, "shiprocket.rates", func(ctx context.Context) ([]shipping.CourierRate, error) {
		return c.next.Rates(ctx, query)
	})
}

func (c *RetryingShiprocket) CreateOrder(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShiprocketOrder, error) {
	return retry.Value(ctx, c.creates, "shiprocket.create_order", func(ctx context.Context) (*shipping.ShiprocketOrder, error) {
		return c.next.CreateOrder(ctx, req)
	})
}

func (c *RetryingShiprocket) AssignAWB(ctx context.Context, shipmentID string, courierID int) (*shipping.AWBAssignment, error) {
	return retry.Value(ctx, c.retrier, "shiprocket.assign_awb", func(ctx context.Context) (*shipping.AWBAssignment, error) {
		return c.next.AssignAWB(ctx, shipmentID, courierID)
	})
}

func (c *RetryingShiprocket) GenerateLabel(ctx context.Context, shipmentID string) (string, error) {
	return retry.Value(ctx, c.retrier, "shiprocket.generate_label", func(ctx context.Context) (string, error) {
		return c.next.GenerateLabel(ctx, shipmentID)
	})
}

func (c *RetryingShiprocket) InvoiceURL(ctx context.Context, shiprocketOrderID string) (string, error) {
	return retry.Value(ctx, c.retrier, "shiprocket.invoice_url", func(ctx context.Context) (string, error) {
		return c.next.InvoiceURL(ctx, shiprocketOrderID)
	})
}

func (c *RetryingShiprocket) Cancel(ctx context.Context, shiprocketOrderID string) error {
	return c.retrier.Do(ctx, "shiprocket.cancel", func(ctx context.Context) error {
		return c.next.Cancel(ctx, shiprocketOrderID)
	})
}

// RetryingDelhivery books Delhivery shipments under the create policy: a
// timed out booking may already hold a waybill
type RetryingDelhivery struct {
	next    shipping.DelhiveryCarrier
	retrier *retry.Retrier
}

// RetryDelhivery wraps a Delhivery carrier
func RetryDelhivery(next shipping.DelhiveryCarrier, retrier *retry.Retrier) *RetryingDelhivery {
	return &RetryingDelhivery{next: next, retrier: retrier.ForCreates()}
}

func (c *RetryingDelhivery) CreateShipment(ctx context.Context, req shipping.ShipmentRequest) (*shipping.Waybill, error) {
	return retry.Value(ctx, c.retrier, "delhivery.create_shipment", func(ctx context.Context) (*shipping.Waybill, error) {
		return c.next.CreateShipment(ctx, req)
	})
}

// RetryingFetcher retries document downloads
type RetryingFetcher struct {
	next    shipping.DocumentFetcher
	retrier *retry.Retrier
}

// RetryFetcher wraps a document fetcher
func RetryFetcher(next shipping.DocumentFetcher, retrier *retry.Retrier) *RetryingFetcher {
	return &RetryingFetcher{next: next, retrier: retrier}
}

func (f *RetryingFetcher) Download(ctx context.Context, url string) ([]byte, error) {
	return retry.Value(ctx, f.retrier, "document.download", func(ctx context.Context) ([]byte, error) {
		return f.next.Download(ctx, url)
	})
}

var (
	_ shipping.ShiprocketCarrier = (*RetryingShiprocket)(nil)
	_ shipping.DelhiveryCarrier  = (*RetryingDelhivery)(nil)
	_ shipping.DocumentFetcher   = (*RetryingFetcher)(nil)
)
