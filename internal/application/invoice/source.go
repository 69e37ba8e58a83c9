package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shipping"
)

// Kind names where an invoice comes from
type Kind string

const (
	KindGenerated Kind = "generated"
	KindCarrier   Kind = "carrier"
)

// ParseKind maps the ?source= query value. Empty means generated
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindGenerated:
		return KindGenerated, nil
	case KindCarrier:
		return KindCarrier, nil
	}
	return "", shared.NewDomainError("INVALID_INPUT", "Invoice source must be generated or carrier")
}

// ErrNoCarrierInvoice is returned for carrier invoices of orders never sent to Shiprocket
var ErrNoCarrierInvoice = shared.NewDomainError("INVALID_STATE", "Order has no carrier shipment to take an invoice from")

// Document is a downloadable invoice
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Source produces the invoice document of an order
type Source interface {
	Kind() Kind
	Invoice(ctx context.Context, o *order.Order) (*Document, error)
}

// Printer renders an order's invoice to PDF
type Printer interface {
	Print(ctx context.Context, o *order.Order) ([]byte, error)
}

// GeneratedSource prints the store's own invoice
type GeneratedSource struct {
	printer Printer
}

// NewGeneratedSource creates a GeneratedSource
func NewGeneratedSource(printer Printer) *GeneratedSource {
	return &GeneratedSource{printer: printer}
}

func (s *GeneratedSource) Kind() Kind { return KindGenerated }

// Invoice renders the PDF
func (s *GeneratedSource) Invoice(ctx context.Context, o *order.Order) (*Document, error) {
	data, err := s.printer.Print(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("failed to print invoice for %s: %w", o.OrderNumber, err)
	}
	return pdfDocument(o, data), nil
}

// CarrierSource downloads the invoice Shiprocket hosts for the order
type CarrierSource struct {
	carrier shipping.ShiprocketCarrier
	fetcher shipping.DocumentFetcher
}

// NewCarrierSource creates a CarrierSource
func NewCarrierSource(carrier shipping.ShiprocketCarrier, fetcher shipping.DocumentFetcher) *CarrierSource {
	return &CarrierSource{carrier: carrier, fetcher: fetcher}
}

func (s *CarrierSource) Kind() Kind { return KindCarrier }

// Invoice asks Shiprocket for the invoice link and fetches the PDF behind it
func (s *CarrierSource) Invoice(ctx context.Context, o *order.Order) (*Document, error) {
	if !o.Shipment.HasCarrierInvoice() {
		return nil, ErrNoCarrierInvoice
	}
	url, err := s.carrier.InvoiceURL(ctx, o.Shipment.ShiprocketOrderID)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, fmt.Errorf("%w: empty invoice url", shipping.ErrCarrierInvalidResponse)
	}
	data, err := s.fetcher.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty invoice document", shipping.ErrCarrierInvalidResponse)
	}
	return pdfDocument(o, data), nil
}

func pdfDocument(o *order.Order, data []byte) *Document {
	return &Document{
		Filename:    "invoice-" + o.OrderNumber + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}
}
