package router

import (
	"github.com/gin-gonic/gin"
	"github.com/wellnest/backend/internal/interfaces/http/handler"
)

// Handlers are the storefront and admin handlers mounted by StoreRoutes
type Handlers struct {
	Auth     *handler.AuthHandler
	Address  *handler.AddressHandler
	Catalog  *handler.CatalogHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Invoices *handler.InvoiceHandler
	Shipping *handler.ShippingHandler
	System   *handler.SystemHandler
}

// Guards are route-level middleware. Admin is required; AuthLimit may be nil
type Guards struct {
	Admin     gin.HandlerFunc
	AuthLimit gin.HandlerFunc
}

// StoreRoutes builds every API route group. Authentication itself is applied
// to the whole API by the Router; the groups here add role checks and the
// stricter limiter on credential endpoints
func StoreRoutes(h Handlers, g Guards) []*Group {
	limited := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if g.AuthLimit == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{g.AuthLimit, fn}
	}

	authRoutes := NewGroup("/auth")
	authRoutes.POST("/signup", limited(h.Auth.Signup)...)
	authRoutes.POST("/login", limited(h.Auth.Login)...)
	authRoutes.POST("/logout", h.Auth.Logout)
	authRoutes.POST("/verify-email", limited(h.Auth.VerifyEmail)...)
	authRoutes.POST("/resend-otp", limited(h.Auth.ResendOTP)...)

	accountRoutes := NewGroup("/me")
	accountRoutes.GET("", h.Auth.Me)
	accountRoutes.PUT("", h.Auth.UpdateProfile)
	accountRoutes.PUT("/password", limited(h.Auth.ChangePassword)...)
	addresses := accountRoutes.Group("/addresses")
	addresses.GET("", h.Address.List)
	addresses.POST("", h.Address.Add)
	addresses.PUT("/:id", h.Address.Update)
	addresses.DELETE("/:id", h.Address.Delete)
	addresses.PUT("/:id/default", h.Address.SetDefault)

	productRoutes := NewGroup("/products")
	productRoutes.GET("", h.Catalog.ListProducts)
	productRoutes.GET("/:slug", h.Catalog.GetProduct)

	couponRoutes := NewGroup("/coupons")
	couponRoutes.POST("/validate", h.Catalog.ValidateCoupon)

	cartRoutes := NewGroup("/cart")
	cartRoutes.GET("", h.Cart.Get)
	cartRoutes.DELETE("", h.Cart.Clear)
	cartRoutes.POST("/items", h.Cart.AddItem)
	cartRoutes.PATCH("/items", h.Cart.UpdateItem)
	cartRoutes.DELETE("/items", h.Cart.RemoveItem)
	cartRoutes.POST("/coupon", h.Cart.ApplyCoupon)
	cartRoutes.DELETE("/coupon", h.Cart.RemoveCoupon)

	orderRoutes := NewGroup("/orders")
	orderRoutes.POST("", h.Checkout.PlaceOrder)
	orderRoutes.GET("", h.Orders.ListMine)
	orderRoutes.GET("/:id", h.Orders.GetMine)
	orderRoutes.GET("/:id/invoice", h.Invoices.GetMine)
	payment := orderRoutes.Group("/:id/payment")
	payment.POST("/verify", h.Payments.Verify)
	payment.GET("/status", h.Payments.Status)
	payment.POST("/session", h.Payments.CreateSession)

	webhookRoutes := NewGroup("/webhooks")
	webhookRoutes.POST("/razorpay", h.Payments.RazorpayWebhook)
	webhookRoutes.POST("/phonepe", h.Payments.PhonePeCallback)

	adminRoutes := NewGroup("/admin", g.Admin)
	adminOrders := adminRoutes.Group("/orders")
	adminOrders.GET("", h.Orders.List)
	adminOrders.GET("/export", h.Orders.Export)
	adminOrders.GET("/:id", h.Orders.Get)
	adminOrders.PUT("/:id/status", h.Orders.UpdateStatus)
	adminOrders.GET("/:id/invoice", h.Invoices.Get)
	adminOrders.POST("/:id/invoice/archive", h.Invoices.Archive)
	shipping := adminOrders.Group("/:id/shipping")
	shipping.GET("/rates", h.Shipping.Rates)
	shipping.POST("/shiprocket", h.Shipping.CreateShiprocketOrder)
	shipping.POST("/shiprocket/awb", h.Shipping.AssignAWB)
	shipping.GET("/shiprocket/label", h.Shipping.Label)
	shipping.POST("/shiprocket/cancel", h.Shipping.CancelShiprocket)
	shipping.POST("/delhivery", h.Shipping.CreateDelhiveryShipment)
	shipping.POST("/manual", h.Shipping.RecordManualShipment)

	systemRoutes := NewGroup("/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	return []*Group{
		authRoutes,
		accountRoutes,
		productRoutes,
		couponRoutes,
		cartRoutes,
		orderRoutes,
		webhookRoutes,
		adminRoutes,
		systemRoutes,
	}
}

// HealthRoutes mounts liveness and readiness outside the versioned API
func HealthRoutes(engine *gin.Engine, system *handler.SystemHandler) {
	engine.GET("/health", system.Health)
	engine.GET("/ready", system.Ready)
}
