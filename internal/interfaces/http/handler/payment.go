package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	orderapp "github.com/wellnest/backend/internal/application/order"
	paymentapp "github.com/wellnest/backend/internal/application/payment"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/interfaces/http/dto"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	phonePeSignatureHeader  = "X-VERIFY"

	maxWebhookBody = 256 << 10
)

// PaymentHandler serves payment callbacks from the storefront and the gateways
type PaymentHandler struct {
	BaseHandler
	payments *paymentapp.Service
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *paymentapp.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Verify godoc
// @ID           verifyPayment
// @Summary      Confirm a Razorpay payment
// @Description  Called with the checkout widget's success payload. The signature is checked
// @Description  before the order is marked paid; repeating the call is harmless.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string               true "Order ID" format(uuid)
// @Param        request body VerifyPaymentRequest true "Razorpay payload"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse "INVALID_SIGNATURE"
// @Failure      409 {object} ErrorResponse "PAYMENT_IN_PROGRESS"
// @Router       /orders/{id}/payment/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req VerifyPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	o, err := h.payments.Verify(requestContext(c), userID, orderID, paymentapp.VerifyInput{
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		Signature:         req.Signature,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orderapp.ToOrderResponse(o))
}

// Status godoc
// @ID           getPaymentStatus
// @Summary      Poll the payment state
// @Description  Asks the gateway and settles the order when the payment is final.
// @Description  Used by the PhonePe return page.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id}/payment/status [get]
func (h *PaymentHandler) Status(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.payments.CheckStatus(requestContext(c), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orderapp.ToOrderResponse(o))
}

// CreateSession godoc
// @ID           createPaymentSession
// @Summary      Retry payment
// @Description  Opens a new gateway session for a Pending online order
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[CheckoutResponse]
// @Failure      409 {object} ErrorResponse "PAYMENT_NOT_PENDING"
// @Failure      503 {object} ErrorResponse
// @Router       /orders/{id}/payment/session [post]
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.payments.CreateSession(requestContext(c), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CheckoutResponse{
		Order:   orderapp.ToOrderResponse(res.Order),
		Payment: toSessionResponse(res.Session),
	})
}

// RazorpayWebhook godoc
// @ID           razorpayWebhook
// @Summary      Razorpay webhook
// @Description  payment.captured and payment.failed settle the matching order.
// @Description  Redelivered events are acknowledged without side effects.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Razorpay-Signature header string true "HMAC of the body"
// @Success      200 {object} APIResponse[WebhookAck]
// @Failure      400 {object} ErrorResponse "INVALID_SIGNATURE"
// @Router       /webhooks/razorpay [post]
func (h *PaymentHandler) RazorpayWebhook(c *gin.Context) {
	h.webhook(c, order.ProviderRazorpay, razorpaySignatureHeader)
}

// PhonePeCallback godoc
// @ID           phonePeCallback
// @Summary      PhonePe server callback
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-VERIFY header string true "Checksum of the payload"
// @Success      200 {object} APIResponse[WebhookAck]
// @Failure      400 {object} ErrorResponse "INVALID_SIGNATURE"
// @Router       /webhooks/phonepe [post]
func (h *PaymentHandler) PhonePeCallback(c *gin.Context) {
	h.webhook(c, order.ProviderPhonePe, phonePeSignatureHeader)
}

// webhook reads the raw body since signatures cover the exact bytes sent
func (h *PaymentHandler) webhook(c *gin.Context, provider order.PaymentProvider, header string) {
	signature := c.GetHeader(header)
	if signature == "" {
		h.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Missing "+header+" header")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return
	}
	if len(body) > maxWebhookBody {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Webhook body too large")
		return
	}

	res, err := h.payments.HandleWebhook(requestContext(c), provider, body, signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, WebhookAck{
		Received:  true,
		EventID:   res.EventID,
		Duplicate: res.Duplicate,
		Ignored:   res.Ignored,
	})
}
