package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	cartapp "github.com/wellnest/backend/internal/application/cart"
	catalogapp "github.com/wellnest/backend/internal/application/catalog"
	"github.com/wellnest/backend/internal/application/checkout"
	identityapp "github.com/wellnest/backend/internal/application/identity"
	invoiceapp "github.com/wellnest/backend/internal/application/invoice"
	orderapp "github.com/wellnest/backend/internal/application/order"
	paymentapp "github.com/wellnest/backend/internal/application/payment"
	shippingapp "github.com/wellnest/backend/internal/application/shipping"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/infrastructure/auth"
	"github.com/wellnest/backend/internal/infrastructure/cache"
	"github.com/wellnest/backend/internal/infrastructure/config"
	"github.com/wellnest/backend/internal/infrastructure/export"
	"github.com/wellnest/backend/internal/infrastructure/mail"
	"github.com/wellnest/backend/internal/infrastructure/persistence"
	"github.com/wellnest/backend/internal/interfaces/http/handler"
	"github.com/wellnest/backend/internal/interfaces/http/middleware"
	"github.com/wellnest/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

var validatorOnce sync.Once

// TestServer is the full storefront router over a real database. Gateways,
// carriers and the PDF renderer are left out; those have their own tests
type TestServer struct {
	DB     *TestDB
	Engine *gin.Engine
	t      *testing.T
}

// NewTestServer starts a database and wires the API the way cmd/server does
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validatorOnce.Do(func() {
		require.NoError(t, middleware.SetupValidator())
	})

	testDB := NewTestDB(t)
	db := testDB.Database()
	log := zap.NewNop()
	kv := cache.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	couponRepo := persistence.NewGormCouponRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	carts := cache.NewCartStore(kv)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "integration-secret-at-least-32-bytes!!",
		AccessTokenExpiration: time.Hour,
		Issuer:                "wellnest-test",
	})
	revocations := auth.NewKVRevocations(kv)

	couponService := catalogapp.NewCouponService(couponRepo, time.Now)
	paymentService := paymentapp.NewService(paymentapp.ServiceConfig{
		Orders:      orderRepo,
		Products:    productRepo,
		Tx:          db,
		Locker:      kv,
		Idempotency: kv,
		Carts:       carts,
		Logger:      log,
	})
	numbers, err := checkout.NewShortIDNumberer("WN", 1, orderRepo.ExistsByNumber)
	require.NoError(t, err)
	checkoutService := checkout.NewService(checkout.ServiceConfig{
		Orders:   orderRepo,
		Products: productRepo,
		Coupons:  couponRepo,
		Users:    userRepo,
		Tx:       db,
		Numbers:  numbers,
		Payments: paymentService,
		Carts:    carts,
		Delivery: order.DeliveryPolicy{
			Flat:      valueobject.NewINRFromInt(50),
			FreeAbove: valueobject.NewINRFromInt(999),
		},
		Logger: log,
	})
	workbook := export.NewOrderWorkbook()
	orderService := orderapp.NewService(orderapp.ServiceConfig{
		Orders:   orderRepo,
		Products: productRepo,
		Tx:       db,
		Exporter: workbook,
		Logger:   log,
	})
	shippingService := shippingapp.NewService(shippingapp.ServiceConfig{
		Orders:   orderRepo,
		Products: productRepo,
		Users:    userRepo,
		Logger:   log,
	})

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(identityapp.NewAuthService(userRepo, jwtService, revocations, mail.NewLogMailer(log), log)),
		Address:  handler.NewAddressHandler(identityapp.NewAddressService(userRepo)),
		Catalog:  handler.NewCatalogHandler(catalogapp.NewProductService(productRepo), couponService),
		Cart:     handler.NewCartHandler(cartapp.NewService(carts, productRepo, couponService, log)),
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Orders:   handler.NewOrderHandler(orderService, workbook.Filename),
		Payments: handler.NewPaymentHandler(paymentService),
		Invoices: handler.NewInvoiceHandler(invoiceapp.NewService(orderRepo, nil)),
		Shipping: handler.NewShippingHandler(shippingService),
		System:   handler.NewSystemHandler("wellnest", "test", map[string]handler.Pinger{"database": db}),
	}

	engine := gin.New()
	engine.Use(middleware.RequestID(), gin.Recovery(), middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	authn := middleware.NewAuthenticator(jwtService, revocations, log).Public(middleware.StorefrontPublic...)
	router.NewRouter(engine).
		Use(authn.Require()).
		Register(router.StoreRoutes(handlers, router.Guards{Admin: middleware.RequireAdmin(log)})...).
		Setup()
	router.HealthRoutes(engine, handlers.System)

	return &TestServer{DB: testDB, Engine: engine, t: t}
}

// Request sends a JSON request, with a bearer token when one is given
func (s *TestServer) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)
	return w
}

// Signup registers a customer and returns its access token
func (s *TestServer) Signup(email string) string {
	s.t.Helper()
	w := s.Request(http.MethodPost, "/api/v1/auth/signup", map[string]any{
		"name":     "Asha Rao",
		"email":    email,
		"phone":    "9876543210",
		"password": "Sup3rSecret!",
	}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[authBody](s.t, w).Data.AccessToken
}

// Admin creates an admin account directly and logs it in
func (s *TestServer) Admin(email string) string {
	s.t.Helper()
	s.Signup(email)
	require.NoError(s.t, s.DB.DB.Exec(`UPDATE users SET role = 'admin' WHERE email = ?`, email).Error)

	w := s.Request(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    email,
		"password": "Sup3rSecret!",
	}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	body := decode[authBody](s.t, w)
	require.Equal(s.t, "admin", body.Data.User.Role)
	return body.Data.AccessToken
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type authBody = envelope[struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}]

type orderBody struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"order_number"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	FinalPrice    json.Number `json:"final_price"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
