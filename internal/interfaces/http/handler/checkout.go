package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellnest/backend/internal/application/checkout"
	orderapp "github.com/wellnest/backend/internal/application/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/interfaces/http/dto"
)

// CheckoutHandler turns a checkout submission into an order
type CheckoutHandler struct {
	BaseHandler
	checkout *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc}
}

// PlaceOrder godoc
// @ID           placeOrder
// @Summary      Place an order
// @Description  Prices, stock and the coupon are re-checked on the server. Cash on delivery
// @Description  orders are confirmed immediately; online orders come back Pending with a
// @Description  payment session. If the gateway fails after the order was saved, the error
// @Description  details carry the order id so the storefront can retry payment.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body PlaceOrderRequest true "Checkout"
// @Success      201 {object} APIResponse[CheckoutResponse]
// @Failure      409 {object} ErrorResponse "PRICE_CHANGED"
// @Failure      422 {object} ErrorResponse "INSUFFICIENT_STOCK or INVALID_COUPON"
// @Failure      503 {object} ErrorResponse
// @Router       /orders [post]
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.checkout.PlaceOrder(requestContext(c), userID, req.toCommand())
	if err != nil {
		if res != nil && res.Order != nil {
			h.orderSavedError(c, res, err)
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Created(c, CheckoutResponse{
		Order:   orderapp.ToOrderResponse(res.Order),
		Payment: toSessionResponse(res.Session),
	})
}

// orderSavedError reports a payment session failure for an order that exists
func (h *CheckoutHandler) orderSavedError(c *gin.Context, res *checkout.PlaceOrderResult, err error) {
	code, message := shared.ErrExternalUnavailable.Code, shared.ErrExternalUnavailable.Message
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code, message = domainErr.Code, domainErr.Message
	}
	status := dto.GetHTTPStatus(code)
	if status < http.StatusBadRequest {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.Fail(code, message, getRequestID(c)).WithDetails(gin.H{
		"order_id":     res.Order.ID,
		"order_number": res.Order.OrderNumber,
	}))
}
