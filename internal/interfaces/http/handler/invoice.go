package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	invoiceapp "github.com/wellnest/backend/internal/application/invoice"
)

// InvoiceHandler serves order invoices as PDF downloads
type InvoiceHandler struct {
	BaseHandler
	invoices *invoiceapp.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices *invoiceapp.Service) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// GetMine godoc
// @ID           getMyInvoice
// @Summary      Download my invoice
// @Description  source=carrier returns the Shiprocket invoice when the order was sent through Shiprocket
// @Tags         orders
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id     path  string true  "Order ID" format(uuid)
// @Param        source query string false "Invoice source" Enums(generated, carrier)
// @Success      200 {file} file
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "INVALID_STATE"
// @Router       /orders/{id}/invoice [get]
func (h *InvoiceHandler) GetMine(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	kind, err := invoiceapp.ParseKind(c.Query("source"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	doc, err := h.invoices.GetForUser(requestContext(c), userID, id, kind)
	h.send(c, doc, err)
}

// Get godoc
// @ID           adminGetInvoice
// @Summary      Download an order's invoice
// @Tags         admin
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id     path  string true  "Order ID" format(uuid)
// @Param        source query string false "Invoice source" Enums(generated, carrier)
// @Success      200 {file} file
// @Router       /admin/orders/{id}/invoice [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	kind, err := invoiceapp.ParseKind(c.Query("source"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	doc, err := h.invoices.Get(requestContext(c), id, kind)
	h.send(c, doc, err)
}

// Archive godoc
// @ID           adminArchiveInvoice
// @Summary      Archive the invoice
// @Description  Uploads the generated PDF to object storage and returns a short-lived link
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[invoiceapp.ArchiveResult]
// @Failure      503 {object} ErrorResponse
// @Router       /admin/orders/{id}/invoice/archive [post]
func (h *InvoiceHandler) Archive(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.invoices.Archive(requestContext(c), id)
	h.respond(c, http.StatusOK, res, err)
}

func (h *InvoiceHandler) send(c *gin.Context, doc *invoiceapp.Document, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
