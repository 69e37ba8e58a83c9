package handler

import (
	"github.com/gin-gonic/gin"
	cartapp "github.com/wellnest/backend/internal/application/cart"
)

// CartHandler serves the customer's server-held cart
type CartHandler struct {
	BaseHandler
	carts *cartapp.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cartapp.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get godoc
// @ID           getCart
// @Summary      Get the cart
// @Description  An expired cart comes back empty
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	resp, err := h.carts.Get(requestContext(c), userID)
	h.respond(c, resp, err)
}

// AddItem godoc
// @ID           addCartItem
// @Summary      Add a product to the cart
// @Description  Merges with an existing line of the same product and variant
// @Tags         cart
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body cartapp.AddItemRequest true "Product, variant and quantity"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req cartapp.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.AddItem(requestContext(c), userID, req)
	h.respond(c, resp, err)
}

// UpdateItem godoc
// @ID           updateCartItem
// @Summary      Set a line's quantity
// @Description  Quantity 0 removes the line
// @Tags         cart
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body cartapp.UpdateItemRequest true "Line and new quantity"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Router       /cart/items [patch]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req cartapp.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.UpdateItem(requestContext(c), userID, req)
	h.respond(c, resp, err)
}

// RemoveItem godoc
// @ID           removeCartItem
// @Summary      Remove a line
// @Tags         cart
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body cartapp.RemoveItemRequest true "Line"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Router       /cart/items [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req cartapp.RemoveItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.RemoveItem(requestContext(c), userID, req)
	h.respond(c, resp, err)
}

// ApplyCoupon godoc
// @ID           applyCartCoupon
// @Summary      Apply a coupon
// @Description  The code is checked against the coupon table before it is applied
// @Tags         cart
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body cartapp.ApplyCouponRequest true "Coupon code"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /cart/coupon [post]
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req cartapp.ApplyCouponRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.ApplyCoupon(requestContext(c), userID, req.Code)
	h.respond(c, resp, err)
}

// RemoveCoupon godoc
// @ID           removeCartCoupon
// @Summary      Remove the coupon
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Router       /cart/coupon [delete]
func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	resp, err := h.carts.RemoveCoupon(requestContext(c), userID)
	h.respond(c, resp, err)
}

// Clear godoc
// @ID           clearCart
// @Summary      Empty the cart
// @Tags         cart
// @Security     BearerAuth
// @Success      204
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	if err := h.carts.Clear(requestContext(c), userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *CartHandler) respond(c *gin.Context, resp *cartapp.CartResponse, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
