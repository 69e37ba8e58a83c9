package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// OrderModel is the persistence model for the Order aggregate root.
// Shipment fields are flattened; shipping_method is guarded by a CHECK
// constraint in the migrations.
type OrderModel struct {
	VersionedRow
	OrderNumber       string                    `gorm:"type:varchar(32);not null;uniqueIndex"`
	UserID            uuid.UUID                 `gorm:"type:uuid;not null;index"`
	TotalPrice        decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	Discount          decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	DeliveryCharge    decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	FinalPrice        decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	CouponCode        string                    `gorm:"type:varchar(50)"`
	ShippingAddress   valueobject.PostalAddress `gorm:"type:jsonb;not null"`
	PaymentMode       string                    `gorm:"type:varchar(10);not null"`
	PaymentProvider   string                    `gorm:"type:varchar(20)"`
	PaymentStatus     string                    `gorm:"type:varchar(20);not null;index"`
	PaymentID         string                    `gorm:"type:varchar(100)"`
	RazorpayOrderID   string                    `gorm:"type:varchar(100);index"`
	RazorpayPaymentID string                    `gorm:"type:varchar(100)"`
	PhonePeOrderID    string                    `gorm:"column:phonepe_order_id;type:varchar(100);index"`
	Status            string                    `gorm:"type:varchar(20);not null;index"`
	StockCommitted    bool                      `gorm:"not null;default:false"`

	ShippingMethod       string     `gorm:"type:varchar(20);not null;default:''"`
	ShippingState        string     `gorm:"type:varchar(40);not null;default:'none'"`
	ShiprocketOrderID    string     `gorm:"type:varchar(50)"`
	ShiprocketShipmentID string     `gorm:"type:varchar(50)"`
	CourierID            int        `gorm:"not null;default:0"`
	CourierName          string     `gorm:"type:varchar(100)"`
	TrackingID           string     `gorm:"type:varchar(100)"`
	LabelURL             string     `gorm:"type:varchar(500)"`
	DelhiveryWaybill     string     `gorm:"type:varchar(50)"`
	ManualNote           string     `gorm:"type:text"`
	ShipmentUpdatedAt    *time.Time `gorm:"column:shipment_updated_at"`

	Items   []OrderItemModel   `gorm:"foreignKey:OrderID;references:ID"`
	History []OrderStatusModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title     string          `gorm:"type:varchar(200);not null"`
	Image     string          `gorm:"type:varchar(500)"`
	Variant   string          `gorm:"type:varchar(100)"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderStatusModel is one append-only row of an order's status history.
type OrderStatusModel struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq       int       `gorm:"primaryKey;autoIncrement:false"`
	Status    string    `gorm:"type:varchar(20);not null"`
	Note      string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderStatusModel) TableName() string {
	return "order_status_history"
}

// ToDomain converts the persistence model to a domain Order aggregate.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		TotalPrice:        valueobject.NewINR(m.TotalPrice),
		Discount:          valueobject.NewINR(m.Discount),
		DeliveryCharge:    valueobject.NewINR(m.DeliveryCharge),
		FinalPrice:        valueobject.NewINR(m.FinalPrice),
		CouponCode:        m.CouponCode,
		ShippingAddress:   m.ShippingAddress,
		PaymentMode:       order.PaymentMode(m.PaymentMode),
		PaymentProvider:   order.PaymentProvider(m.PaymentProvider),
		PaymentStatus:     order.PaymentStatus(m.PaymentStatus),
		PaymentID:         m.PaymentID,
		RazorpayOrderID:   m.RazorpayOrderID,
		RazorpayPaymentID: m.RazorpayPaymentID,
		PhonePeOrderID:    m.PhonePeOrderID,
		Status:            order.Status(m.Status),
		StockCommitted:    m.StockCommitted,
		Shipment: order.Shipment{
			Method:               order.ShippingMethod(m.ShippingMethod),
			State:                order.ShippingState(m.ShippingState),
			ShiprocketOrderID:    m.ShiprocketOrderID,
			ShiprocketShipmentID: m.ShiprocketShipmentID,
			CourierID:            m.CourierID,
			CourierName:          m.CourierName,
			TrackingID:           m.TrackingID,
			LabelURL:             m.LabelURL,
			DelhiveryWaybill:     m.DelhiveryWaybill,
			ManualNote:           m.ManualNote,
			UpdatedAt:            m.ShipmentUpdatedAt,
		},
	}
	o.Aggregate = m.aggregate()
	if o.Shipment.State == "" {
		o.Shipment.State = order.ShippingStateNone
	}

	o.Items = make([]order.Item, len(m.Items))
	for i, it := range m.Items {
		o.Items[i] = order.Item{
			ProductID: it.ProductID,
			Title:     it.Title,
			Image:     it.Image,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			Price:     valueobject.NewINR(it.Price),
		}
	}
	o.StatusHistory = make([]order.StatusEntry, len(m.History))
	for i, h := range m.History {
		o.StatusHistory[i] = order.StatusEntry{
			Status:    order.Status(h.Status),
			UpdatedAt: h.UpdatedAt,
			Note:      h.Note,
		}
	}
	return o
}

// FromDomain populates the scalar columns from a domain Order. Items and
// history are mapped by OrderModelFromDomain and HistoryModels.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.setAggregate(o.Aggregate)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.TotalPrice = o.TotalPrice.Amount()
	m.Discount = o.Discount.Amount()
	m.DeliveryCharge = o.DeliveryCharge.Amount()
	m.FinalPrice = o.FinalPrice.Amount()
	m.CouponCode = o.CouponCode
	m.ShippingAddress = o.ShippingAddress
	m.PaymentMode = string(o.PaymentMode)
	m.PaymentProvider = string(o.PaymentProvider)
	m.PaymentStatus = string(o.PaymentStatus)
	m.PaymentID = o.PaymentID
	m.RazorpayOrderID = o.RazorpayOrderID
	m.RazorpayPaymentID = o.RazorpayPaymentID
	m.PhonePeOrderID = o.PhonePeOrderID
	m.Status = string(o.Status)
	m.StockCommitted = o.StockCommitted

	s := o.Shipment
	m.ShippingMethod = string(s.Method)
	m.ShippingState = string(s.State)
	if m.ShippingState == "" {
		m.ShippingState = string(order.ShippingStateNone)
	}
	m.ShiprocketOrderID = s.ShiprocketOrderID
	m.ShiprocketShipmentID = s.ShiprocketShipmentID
	m.CourierID = s.CourierID
	m.CourierName = s.CourierName
	m.TrackingID = s.TrackingID
	m.LabelURL = s.LabelURL
	m.DelhiveryWaybill = s.DelhiveryWaybill
	m.ManualNote = s.ManualNote
	m.ShipmentUpdatedAt = s.UpdatedAt
}

// ToUpdateMap returns the mutable columns for an optimistic-lock update.
// Version and UpdatedAt are set by the repository.
func (m *OrderModel) ToUpdateMap() map[string]any {
	return map[string]any{
		"payment_status":         m.PaymentStatus,
		"payment_provider":       m.PaymentProvider,
		"payment_id":             m.PaymentID,
		"razorpay_order_id":      m.RazorpayOrderID,
		"razorpay_payment_id":    m.RazorpayPaymentID,
		"phonepe_order_id":       m.PhonePeOrderID,
		"status":                 m.Status,
		"stock_committed":        m.StockCommitted,
		"shipping_method":        m.ShippingMethod,
		"shipping_state":         m.ShippingState,
		"shiprocket_order_id":    m.ShiprocketOrderID,
		"shiprocket_shipment_id": m.ShiprocketShipmentID,
		"courier_id":             m.CourierID,
		"courier_name":           m.CourierName,
		"tracking_id":            m.TrackingID,
		"label_url":              m.LabelURL,
		"delhivery_waybill":      m.DelhiveryWaybill,
		"manual_note":            m.ManualNote,
		"shipment_updated_at":    m.ShipmentUpdatedAt,
	}
}

// OrderModelFromDomain creates a new persistence model, with items and
// history, from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, it := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:        uuid.New(),
			OrderID:   o.ID,
			Position:  i,
			ProductID: it.ProductID,
			Title:     it.Title,
			Image:     it.Image,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			Price:     it.Price.Amount(),
		}
	}
	m.History = HistoryModels(o.ID, o.StatusHistory, 0)
	return m
}

// HistoryModels maps status entries starting at index from. Sequence numbers
// are the entry's position in the full history.
func HistoryModels(orderID uuid.UUID, entries []order.StatusEntry, from int) []OrderStatusModel {
	if from >= len(entries) {
		return nil
	}
	rows := make([]OrderStatusModel, 0, len(entries)-from)
	for i := from; i < len(entries); i++ {
		e := entries[i]
		rows = append(rows, OrderStatusModel{
			OrderID:   orderID,
			Seq:       i,
			Status:    string(e.Status),
			Note:      e.Note,
			UpdatedAt: e.UpdatedAt,
		})
	}
	return rows
}
