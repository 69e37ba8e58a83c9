package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	orderapp "github.com/wellnest/backend/internal/application/order"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OrderHandler serves order history to customers and order management to admins
type OrderHandler struct {
	BaseHandler
	orders     *orderapp.Service
	exportName func() string
}

// NewOrderHandler creates a new order handler. exportName names the
// downloaded spreadsheet; nil falls back to orders.xlsx
func NewOrderHandler(orders *orderapp.Service, exportName func() string) *OrderHandler {
	if exportName == nil {
		exportName = func() string { return "orders.xlsx" }
	}
	return &OrderHandler{orders: orders, exportName: exportName}
}

// ListMine godoc
// @ID           listMyOrders
// @Summary      List my orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(50)
// @Success      200 {object} APIResponse[[]orderapp.OrderSummary]
// @Router       /orders [get]
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var filter orderapp.MyOrdersFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.orders.ListForUser(requestContext(c), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// GetMine godoc
// @ID           getMyOrder
// @Summary      Get one of my orders
// @Description  Orders of other customers are reported as not found
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetMine(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.orders.GetForUser(requestContext(c), userID, id)
	h.respond(c, http.StatusOK, resp, err)
}

// List godoc
// @ID           adminListOrders
// @Summary      List orders
// @Description  Dates are calendar days in IST, both ends inclusive
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        status         query string false "Order status" Enums(Pending, Processing, Shipped, Delivered, Cancelled)
// @Param        payment_status query string false "Payment status" Enums(pending, completed, failed)
// @Param        payment_mode   query string false "Payment mode" Enums(online, cod)
// @Param        search         query string false "Order number or tracking id"
// @Param        from           query string false "From date" format(date)
// @Param        to             query string false "To date" format(date)
// @Param        page           query int    false "Page number" default(1)
// @Param        page_size      query int    false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]orderapp.OrderSummary]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /admin/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var filter orderapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.orders.ListAll(requestContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// Get godoc
// @ID           adminGetOrder
// @Summary      Get an order
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /admin/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.orders.Get(requestContext(c), id)
	h.respond(c, http.StatusOK, resp, err)
}

// UpdateStatus godoc
// @ID           adminUpdateOrderStatus
// @Summary      Change an order's status
// @Description  Cancelling restocks items that were taken from inventory
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string                       true "Order ID" format(uuid)
// @Param        request body orderapp.UpdateStatusRequest true "New status"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse "CONCURRENCY_CONFLICT"
// @Failure      422 {object} ErrorResponse "INVALID_STATUS_TRANSITION"
// @Router       /admin/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req orderapp.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.UpdateStatus(requestContext(c), id, req)
	h.respond(c, http.StatusOK, resp, err)
}

// Export godoc
// @ID           adminExportOrders
// @Summary      Download orders as a spreadsheet
// @Description  Takes the listing filters; paging is ignored
// @Tags         admin
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status query string false "Order status"
// @Param        from   query string false "From date" format(date)
// @Param        to     query string false "To date" format(date)
// @Success      200 {file} file
// @Failure      422 {object} ErrorResponse "EXPORT_TOO_LARGE"
// @Router       /admin/orders/export [get]
func (h *OrderHandler) Export(c *gin.Context) {
	var filter orderapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	data, err := h.orders.Export(requestContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exportName()))
	c.Data(http.StatusOK, xlsxContentType, data)
}
