package printing

import (
	"context"
	_ "embed"
	"html/template"
	"strings"
	"time"

	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/infrastructure/config"
)

//go:embed templates/invoice.html
var invoiceTemplate string

// Seller is the merchant block printed on invoices
type Seller struct {
	Name    string
	GSTIN   string
	Address string
	Email   string
	Phone   string
}

// SellerFrom maps the store config section
func SellerFrom(cfg config.StoreConfig) Seller {
	return Seller{
		Name:    cfg.SellerName,
		GSTIN:   cfg.GSTIN,
		Address: cfg.Address,
		Email:   cfg.SupportEmail,
		Phone:   cfg.SupportPhone,
	}
}

// InvoiceLine is one printed row
type InvoiceLine struct {
	Title     string
	Variant   string
	Quantity  int
	UnitPrice valueobject.Money
	Amount    valueobject.Money
}

// InvoiceView is the data bound to invoice.html
type InvoiceView struct {
	Seller         Seller
	InvoiceNumber  string
	OrderNumber    string
	IssuedAt       time.Time
	OrderDate      time.Time
	BillTo         []string
	ShipTo         []string
	Lines          []InvoiceLine
	Subtotal       valueobject.Money
	Discount       valueobject.Money
	CouponCode     string
	DeliveryCharge valueobject.Money
	Total          valueobject.Money
	PaymentMethod  string
	PaymentStatus  string
	PaymentID      string
	Courier        string
	Tracking       string
}

// InvoiceNumber derives the invoice number from the order number
func InvoiceNumber(orderNumber string) string {
	return "INV-" + strings.TrimPrefix(orderNumber, "WN-")
}

// NewInvoiceView builds the printed view of an order
func NewInvoiceView(o *order.Order, seller Seller, issuedAt time.Time) InvoiceView {
	lines := make([]InvoiceLine, len(o.Items))
	for i, it := range o.Items {
		lines[i] = InvoiceLine{
			Title:     it.Title,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Amount:    it.LineTotal(),
		}
	}

	method := "Cash on Delivery"
	if o.IsOnline() {
		method = "Online (" + titleCase(o.PaymentProvider.String()) + ")"
	}

	addr := o.ShippingAddress.Lines()
	return InvoiceView{
		Seller:         seller,
		InvoiceNumber:  InvoiceNumber(o.OrderNumber),
		OrderNumber:    o.OrderNumber,
		IssuedAt:       issuedAt,
		OrderDate:      o.CreatedAt,
		BillTo:         addr,
		ShipTo:         addr,
		Lines:          lines,
		Subtotal:       o.TotalPrice,
		Discount:       o.Discount,
		CouponCode:     o.CouponCode,
		DeliveryCharge: o.DeliveryCharge,
		Total:          o.FinalPrice,
		PaymentMethod:  method,
		PaymentStatus:  string(o.PaymentStatus),
		PaymentID:      o.PaymentID,
		Courier:        o.Shipment.CourierName,
		Tracking:       o.Shipment.Tracking(),
	}
}

// InvoicePrinter renders order invoices to PDF
type InvoicePrinter struct {
	engine   *TemplateEngine
	tmpl     *template.Template
	renderer PDFRenderer
	seller   Seller
	pageSize PageSize
	clock    func() time.Time
}

// InvoicePrinterOption configures an InvoicePrinter
type InvoicePrinterOption func(*InvoicePrinter)

// WithPageSize sets the paper size
func WithPageSize(size PageSize) InvoicePrinterOption {
	return func(p *InvoicePrinter) {
		if size.IsValid() {
			p.pageSize = size
		}
	}
}

// WithClock overrides the invoice date source
func WithClock(clock func() time.Time) InvoicePrinterOption {
	return func(p *InvoicePrinter) {
		p.clock = clock
	}
}

// NewInvoicePrinter compiles the embedded invoice template
func NewInvoicePrinter(renderer PDFRenderer, seller Seller, opts ...InvoicePrinterOption) (*InvoicePrinter, error) {
	engine := NewTemplateEngine()
	tmpl, err := engine.Parse("invoice.html", invoiceTemplate)
	if err != nil {
		return nil, err
	}
	p := &InvoicePrinter{
		engine:   engine,
		tmpl:     tmpl,
		renderer: renderer,
		seller:   seller,
		pageSize: PageSizeA4,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RenderHTML executes the invoice template for o
func (p *InvoicePrinter) RenderHTML(ctx context.Context, o *order.Order) (string, error) {
	return p.engine.Execute(ctx, p.tmpl, NewInvoiceView(o, p.seller, p.clock()))
}

// Print renders the invoice PDF for o
func (p *InvoicePrinter) Print(ctx context.Context, o *order.Order) ([]byte, error) {
	html, err := p.RenderHTML(ctx, o)
	if err != nil {
		return nil, err
	}
	result, err := p.renderer.Render(ctx, &RenderRequest{
		HTML:     html,
		PageSize: p.pageSize,
		Margins:  DefaultMargins(),
		Title:    "Invoice " + InvoiceNumber(o.OrderNumber),
	})
	if err != nil {
		return nil, err
	}
	return result.PDFData, nil
}
