package handler

import (
	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/application/checkout"
	orderapp "github.com/wellnest/backend/internal/application/order"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// CheckoutItemRequest is one line of a checkout submission
// @name HandlerCheckoutItemRequest
type CheckoutItemRequest struct {
	ProductID uuid.UUID          `json:"product_id" binding:"required"`
	Variant   string             `json:"variant" binding:"omitempty,max=64"`
	Quantity  int                `json:"quantity" binding:"required,min=1,max=100"`
	Price     *valueobject.Money `json:"price,omitempty" swaggertype:"string" example:"499.00"`
}

// PlaceOrderRequest is the checkout body
// @name HandlerPlaceOrderRequest
type PlaceOrderRequest struct {
	Items       []CheckoutItemRequest      `json:"items" binding:"required,min=1,max=50,dive"`
	AddressID   *uuid.UUID                 `json:"address_id,omitempty"`
	Address     *valueobject.PostalAddress `json:"address,omitempty"`
	PaymentMode string                     `json:"payment_mode" binding:"required,oneof=online cod"`
	Provider    string                     `json:"provider" binding:"omitempty,oneof=razorpay phonepe"`
	CouponCode  string                     `json:"coupon_code" binding:"omitempty,max=32"`
}

func (r PlaceOrderRequest) toCommand() checkout.PlaceOrderRequest {
	items := make([]checkout.ItemRequest, len(r.Items))
	for i, it := range r.Items {
		items[i] = checkout.ItemRequest{
			ProductID: it.ProductID,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	return checkout.PlaceOrderRequest{
		Items:       items,
		AddressID:   r.AddressID,
		Address:     r.Address,
		PaymentMode: order.PaymentMode(r.PaymentMode),
		Provider:    order.PaymentProvider(r.Provider),
		CouponCode:  r.CouponCode,
	}
}

// PaymentSessionResponse tells the storefront how to take the customer to the gateway
// @name HandlerPaymentSessionResponse
type PaymentSessionResponse struct {
	Provider       string `json:"provider" example:"razorpay"`
	GatewayOrderID string `json:"gateway_order_id" example:"order_Nx1x2x3"`
	KeyID          string `json:"key_id,omitempty" example:"rzp_live_abc"`
	AmountPaise    int64  `json:"amount_paise" example:"49900"`
	Currency       string `json:"currency" example:"INR"`
	RedirectURL    string `json:"redirect_url,omitempty"`
}

func toSessionResponse(s *payment.Session) *PaymentSessionResponse {
	if s == nil {
		return nil
	}
	return &PaymentSessionResponse{
		Provider:       string(s.Provider),
		GatewayOrderID: s.GatewayOrderID,
		KeyID:          s.KeyID,
		AmountPaise:    s.AmountPaise,
		Currency:       s.Currency,
		RedirectURL:    s.RedirectURL,
	}
}

// CheckoutResponse is a placed order and, for online orders, its payment session
// @name HandlerCheckoutResponse
type CheckoutResponse struct {
	Order   orderapp.OrderResponse  `json:"order"`
	Payment *PaymentSessionResponse `json:"payment,omitempty"`
}

// VerifyPaymentRequest is the Razorpay checkout widget's success payload
// @name HandlerVerifyPaymentRequest
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"omitempty,max=64"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required,max=64"`
	Signature         string `json:"razorpay_signature" binding:"required,max=256"`
}

// WebhookAck acknowledges a gateway notification
// @name HandlerWebhookAck
type WebhookAck struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}
