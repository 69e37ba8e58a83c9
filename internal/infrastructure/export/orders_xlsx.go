// Package export writes order reports as spreadsheets.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"github.com/wellnest/backend/internal/domain/order"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// inrFormat is an Excel number format with Indian digit grouping
const inrFormat = `[$₹-4009]#,##,##0.00`

var indiaTZ = time.FixedZone("IST", 5*3600+1800)

var orderHeaders = []string{
	"Order Number", "Placed At", "Customer", "Phone", "City", "State", "Pincode",
	"Items", "Units", "Subtotal", "Discount", "Coupon", "Delivery", "Final Price",
	"Payment Mode", "Provider", "Payment Status", "Payment ID", "Status",
	"Shipping Method", "Courier", "Tracking",
}

// OrderWorkbook renders orders into an xlsx workbook
type OrderWorkbook struct {
	printer *message.Printer
	now     func() time.Time
}

// NewOrderWorkbook creates an exporter
func NewOrderWorkbook() *OrderWorkbook {
	return &OrderWorkbook{
		printer: message.NewPrinter(language.MustParse("en-IN")),
		now:     time.Now,
	}
}

// Orders writes one sheet with a row per order and a totals sheet
func (w *OrderWorkbook) Orders(ctx context.Context, orders []order.Order) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, fmt.Errorf("export: add sheet: %w", err)
	}

	header := sheet.AddRow()
	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true
	for _, h := range orderHeaders {
		cell := header.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}

	revenue := decimal.Zero
	byStatus := make(map[order.Status]int)
	for i := range orders {
		if i%200 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		o := &orders[i]
		w.addOrderRow(sheet.AddRow(), o)
		byStatus[o.Status]++
		if o.Status != order.StatusCancelled {
			revenue = revenue.Add(o.FinalPrice.Amount())
		}
	}
	if err := sheet.SetColWidth(0, len(orderHeaders)-1, 16); err != nil {
		return nil, fmt.Errorf("export: column width: %w", err)
	}

	if err := w.addSummary(file, len(orders), byStatus, revenue); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns the download name for an export taken now
func (w *OrderWorkbook) Filename() string {
	return "orders-" + w.now().In(indiaTZ).Format("20060102-1504") + ".xlsx"
}

// FormatINR renders ₹1,030.00
func (w *OrderWorkbook) FormatINR(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return w.printer.Sprintf("₹%.2f", f)
}

func (w *OrderWorkbook) addOrderRow(row *xlsx.Row, o *order.Order) {
	units := 0
	titles := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		units += it.Quantity
		title := it.Title
		if it.Variant != "" {
			title += " (" + it.Variant + ")"
		}
		titles = append(titles, fmt.Sprintf("%s x%d", title, it.Quantity))
	}

	row.AddCell().SetString(o.OrderNumber)
	row.AddCell().SetDateTime(o.CreatedAt.In(indiaTZ))
	row.AddCell().SetString(o.ShippingAddress.Name)
	row.AddCell().SetString(o.ShippingAddress.Phone)
	row.AddCell().SetString(o.ShippingAddress.City)
	row.AddCell().SetString(o.ShippingAddress.State)
	row.AddCell().SetString(o.ShippingAddress.Pincode)
	row.AddCell().SetString(strings.Join(titles, "; "))
	row.AddCell().SetInt(units)
	money(row, o.TotalPrice.Amount())
	money(row, o.Discount.Amount())
	row.AddCell().SetString(o.CouponCode)
	money(row, o.DeliveryCharge.Amount())
	money(row, o.FinalPrice.Amount())
	row.AddCell().SetString(strings.ToUpper(string(o.PaymentMode)))
	row.AddCell().SetString(string(o.PaymentProvider))
	row.AddCell().SetString(string(o.PaymentStatus))
	row.AddCell().SetString(o.PaymentID)
	row.AddCell().SetString(string(o.Status))
	row.AddCell().SetString(string(o.Shipment.Method))
	row.AddCell().SetString(o.Shipment.CourierName)
	row.AddCell().SetString(o.Shipment.Tracking())
}

func (w *OrderWorkbook) addSummary(file *xlsx.File, count int, byStatus map[order.Status]int, revenue decimal.Decimal) error {
	sheet, err := file.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("export: add summary: %w", err)
	}
	line := func(label, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetString(value)
	}
	line("Generated", w.now().In(indiaTZ).Format("02 Jan 2006 15:04 IST"))
	line("Orders", w.printer.Sprintf("%d", count))
	line("Revenue (excl. cancelled)", w.FormatINR(revenue))
	for _, st := range []order.Status{order.StatusPending, order.StatusProcessing, order.StatusShipped, order.StatusDelivered, order.StatusCancelled} {
		line(string(st), w.printer.Sprintf("%d", byStatus[st]))
	}
	return nil
}

func money(row *xlsx.Row, d decimal.Decimal) {
	f, _ := d.Round(2).Float64()
	row.AddCell().SetFloatWithFormat(f, inrFormat)
}
