package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// ListFilter is the query string of the admin order listing
type ListFilter struct {
	Status        string `form:"status" binding:"omitempty,oneof=Pending Processing Shipped Delivered Cancelled"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending completed failed"`
	PaymentMode   string `form:"payment_mode" binding:"omitempty,oneof=online cod"`
	Search        string `form:"search" binding:"omitempty,max=64"`
	From          string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To            string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by" binding:"omitempty,oneof=created_at updated_at order_number status payment_status final_price"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MyOrdersFilter pages the customer's own order history
type MyOrdersFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=50"`
}

// UpdateStatusRequest is an admin status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Pending Processing Shipped Delivered Cancelled"`
	Note   string `json:"note" binding:"omitempty,max=500"`
}

// ItemResponse is one order line
type ItemResponse struct {
	ProductID uuid.UUID         `json:"product_id"`
	Title     string            `json:"title"`
	Image     string            `json:"image"`
	Variant   string            `json:"variant,omitempty"`
	Quantity  int               `json:"quantity"`
	Price     valueobject.Money `json:"price"`
	LineTotal valueobject.Money `json:"line_total"`
}

// ShipmentResponse is the shipping record plus the next allowed actions
type ShipmentResponse struct {
	Method               string     `json:"method"`
	State                string     `json:"state"`
	TrackingID           string     `json:"tracking_id,omitempty"`
	CourierName          string     `json:"courier_name,omitempty"`
	CourierID            int        `json:"courier_id,omitempty"`
	ShiprocketOrderID    string     `json:"shiprocket_order_id,omitempty"`
	ShiprocketShipmentID string     `json:"shiprocket_shipment_id,omitempty"`
	DelhiveryWaybill     string     `json:"delhivery_waybill,omitempty"`
	LabelURL             string     `json:"label_url,omitempty"`
	ManualNote           string     `json:"manual_note,omitempty"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
	Actions              []string   `json:"actions"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID                 `json:"id"`
	OrderNumber     string                    `json:"order_number"`
	UserID          uuid.UUID                 `json:"user_id"`
	Items           []ItemResponse            `json:"items"`
	TotalPrice      valueobject.Money         `json:"total_price"`
	Discount        valueobject.Money         `json:"discount"`
	CouponCode      string                    `json:"coupon_code,omitempty"`
	DeliveryCharge  valueobject.Money         `json:"delivery_charge"`
	FinalPrice      valueobject.Money         `json:"final_price"`
	ShippingAddress valueobject.PostalAddress `json:"shipping_address"`
	PaymentMode     string                    `json:"payment_mode"`
	PaymentProvider string                    `json:"payment_provider,omitempty"`
	PaymentStatus   string                    `json:"payment_status"`
	PaymentID       string                    `json:"payment_id,omitempty"`
	Status          string                    `json:"status"`
	StatusHistory   []order.StatusEntry       `json:"status_history"`
	Shipment        ShipmentResponse          `json:"shipment"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	Version         int                       `json:"version"`
}

// OrderSummary is the compact row used in listings
type OrderSummary struct {
	ID            uuid.UUID         `json:"id"`
	OrderNumber   string            `json:"order_number"`
	CustomerName  string            `json:"customer_name"`
	ItemCount     int               `json:"item_count"`
	FinalPrice    valueobject.Money `json:"final_price"`
	PaymentMode   string            `json:"payment_mode"`
	PaymentStatus string            `json:"payment_status"`
	Status        string            `json:"status"`
	TrackingID    string            `json:"tracking_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]ItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = ItemResponse{
			ProductID: it.ProductID,
			Title:     it.Title,
			Image:     it.Image,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			Price:     it.Price,
			LineTotal: it.LineTotal(),
		}
	}
	history := o.StatusHistory
	if history == nil {
		history = []order.StatusEntry{}
	}
	s := o.Shipment
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           items,
		TotalPrice:      o.TotalPrice,
		Discount:        o.Discount,
		CouponCode:      o.CouponCode,
		DeliveryCharge:  o.DeliveryCharge,
		FinalPrice:      o.FinalPrice,
		ShippingAddress: o.ShippingAddress,
		PaymentMode:     string(o.PaymentMode),
		PaymentProvider: string(o.PaymentProvider),
		PaymentStatus:   string(o.PaymentStatus),
		PaymentID:       o.PaymentID,
		Status:          string(o.Status),
		StatusHistory:   history,
		Shipment: ShipmentResponse{
			Method:               string(s.Method),
			State:                string(s.State),
			TrackingID:           s.Tracking(),
			CourierName:          s.CourierName,
			CourierID:            s.CourierID,
			ShiprocketOrderID:    s.ShiprocketOrderID,
			ShiprocketShipmentID: s.ShiprocketShipmentID,
			DelhiveryWaybill:     s.DelhiveryWaybill,
			LabelURL:             s.LabelURL,
			ManualNote:           s.ManualNote,
			UpdatedAt:            s.UpdatedAt,
			Actions:              s.AvailableActions(),
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Version:   o.Version,
	}
}

// ToOrderSummaries converts orders for a listing page
func ToOrderSummaries(orders []order.Order) []OrderSummary {
	out := make([]OrderSummary, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = OrderSummary{
			ID:            o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerName:  o.ShippingAddress.Name,
			ItemCount:     o.ItemCount(),
			FinalPrice:    o.FinalPrice,
			PaymentMode:   string(o.PaymentMode),
			PaymentStatus: string(o.PaymentStatus),
			Status:        string(o.Status),
			TrackingID:    o.Shipment.Tracking(),
			CreatedAt:     o.CreatedAt,
		}
	}
	return out
}

// OrderPage is one page of order summaries
type OrderPage = shared.Paginated[OrderSummary]
