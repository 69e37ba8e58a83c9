package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/wellnest/backend/internal/application/order"
	shippingapp "github.com/wellnest/backend/internal/application/shipping"
	"github.com/wellnest/backend/internal/domain/order"
)

// ShippingHandler serves the admin shipment actions of an order
type ShippingHandler struct {
	BaseHandler
	shipping *shippingapp.Service
}

// NewShippingHandler creates a new shipping handler
func NewShippingHandler(svc *shippingapp.Service) *ShippingHandler {
	return &ShippingHandler{shipping: svc}
}

// LabelResponse points at a printable shipping label
// @name HandlerLabelResponse
type LabelResponse struct {
	LabelURL string `json:"label_url"`
}

// Rates godoc
// @ID           adminShippingRates
// @Summary      Courier quotes
// @Description  Shiprocket couriers serving the order's pincode, cheapest first
// @Tags         admin-shipping
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]shipping.CourierRate]
// @Failure      503 {object} ErrorResponse
// @Router       /admin/orders/{id}/shipping/rates [get]
func (h *ShippingHandler) Rates(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	rates, err := h.shipping.Rates(requestContext(c), id)
	h.respond(c, http.StatusOK, rates, err)
}

// CreateShiprocketOrder godoc
// @ID           adminCreateShiprocketOrder
// @Summary      Send the order to Shiprocket
// @Tags         admin-shipping
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse "SHIPPING_METHOD_CONFLICT"
// @Router       /admin/orders/{id}/shipping/shiprocket [post]
func (h *ShippingHandler) CreateShiprocketOrder(c *gin.Context) {
	h.act(c, h.shipping.CreateShiprocketOrder)
}

// AssignAWB godoc
// @ID           adminAssignAWB
// @Summary      Assign an AWB
// @Description  Moves the order to Shipped
// @Tags         admin-shipping
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string                      true  "Order ID" format(uuid)
// @Param        request body shippingapp.AssignAWBInput false "Courier to use"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Router       /admin/orders/{id}/shipping/shiprocket/awb [post]
func (h *ShippingHandler) AssignAWB(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in shippingapp.AssignAWBInput
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &in) {
		return
	}
	o, err := h.shipping.AssignAWB(requestContext(c), id, in)
	h.respondOrder(c, o, err)
}

// Label godoc
// @ID           adminShippingLabel
// @Summary      Generate the shipping label
// @Tags         admin-shipping
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[LabelResponse]
// @Router       /admin/orders/{id}/shipping/shiprocket/label [get]
func (h *ShippingHandler) Label(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	url, err := h.shipping.Label(requestContext(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, LabelResponse{LabelURL: url})
}

// CancelShiprocket godoc
// @ID           adminCancelShiprocket
// @Summary      Cancel the Shiprocket shipment
// @Description  Frees the order for another shipping method
// @Tags         admin-shipping
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Router       /admin/orders/{id}/shipping/shiprocket/cancel [post]
func (h *ShippingHandler) CancelShiprocket(c *gin.Context) {
	h.act(c, h.shipping.CancelShiprocket)
}

// CreateDelhiveryShipment godoc
// @ID           adminCreateDelhiveryShipment
// @Summary      Book a Delhivery waybill
// @Tags         admin-shipping
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse "SHIPPING_METHOD_CONFLICT"
// @Router       /admin/orders/{id}/shipping/delhivery [post]
func (h *ShippingHandler) CreateDelhiveryShipment(c *gin.Context) {
	h.act(c, h.shipping.CreateDelhiveryShipment)
}

// RecordManualShipment godoc
// @ID           adminRecordManualShipment
// @Summary      Record a self-shipped parcel
// @Tags         admin-shipping
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string                          true "Order ID" format(uuid)
// @Param        request body shippingapp.ManualShipmentInput true "Tracking details"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Router       /admin/orders/{id}/shipping/manual [post]
func (h *ShippingHandler) RecordManualShipment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in shippingapp.ManualShipmentInput
	if !h.bindJSON(c, &in) {
		return
	}
	o, err := h.shipping.RecordManualShipment(requestContext(c), id, in)
	h.respondOrder(c, o, err)
}

func (h *ShippingHandler) act(c *gin.Context, fn func(context.Context, uuid.UUID) (*order.Order, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := fn(requestContext(c), id)
	h.respondOrder(c, o, err)
}

func (h *ShippingHandler) respondOrder(c *gin.Context, o *order.Order, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orderapp.ToOrderResponse(o))
}
