package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/wellnest/backend/internal/application/catalog"
)

// CatalogHandler serves the public product listing and coupon checks
type CatalogHandler struct {
	BaseHandler
	products *catalogapp.ProductService
	coupons  *catalogapp.CouponService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(products *catalogapp.ProductService, coupons *catalogapp.CouponService) *CatalogHandler {
	return &CatalogHandler{products: products, coupons: coupons}
}

// ListProducts godoc
// @ID           listProducts
// @Summary      List products
// @Description  Active products with search and pagination
// @Tags         products
// @Produce      json
// @Param        search    query string false "Title or slug contains"
// @Param        in_stock  query bool   false "Only products with stock"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20) maximum(100)
// @Param        order_by  query string false "Sort field" Enums(created_at, title, price)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.products.List(requestContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, &page)
}

// GetProduct godoc
// @ID           getProductBySlug
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        slug path string true "Product slug"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{slug} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.products.GetBySlug(requestContext(c), c.Param("slug"))
	h.respond(c, http.StatusOK, product, err)
}

// ValidateCoupon godoc
// @ID           validateCoupon
// @Summary      Check a coupon
// @Description  Returns the flat discount a code grants on the given subtotal
// @Tags         coupons
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.ValidateCouponRequest true "Code and subtotal"
// @Success      200 {object} APIResponse[catalogapp.CouponQuote]
// @Failure      422 {object} ErrorResponse
// @Router       /coupons/validate [post]
func (h *CatalogHandler) ValidateCoupon(c *gin.Context) {
	var req catalogapp.ValidateCouponRequest
	if !h.bindJSON(c, &req) {
		return
	}
	quote, err := h.coupons.Validate(requestContext(c), req)
	h.respond(c, http.StatusOK, quote, err)
}
