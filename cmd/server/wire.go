package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	cartapp "github.com/wellnest/backend/internal/application/cart"
	catalogapp "github.com/wellnest/backend/internal/application/catalog"
	"github.com/wellnest/backend/internal/application/checkout"
	identityapp "github.com/wellnest/backend/internal/application/identity"
	invoiceapp "github.com/wellnest/backend/internal/application/invoice"
	orderapp "github.com/wellnest/backend/internal/application/order"
	paymentapp "github.com/wellnest/backend/internal/application/payment"
	shippingapp "github.com/wellnest/backend/internal/application/shipping"
	"github.com/wellnest/backend/internal/domain/cart"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/auth"
	"github.com/wellnest/backend/internal/infrastructure/cache"
	"github.com/wellnest/backend/internal/infrastructure/config"
	"github.com/wellnest/backend/internal/infrastructure/export"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/mail"
	paymentinfra "github.com/wellnest/backend/internal/infrastructure/payment"
	"github.com/wellnest/backend/internal/infrastructure/persistence"
	"github.com/wellnest/backend/internal/infrastructure/printing"
	"github.com/wellnest/backend/internal/infrastructure/retry"
	"github.com/wellnest/backend/internal/infrastructure/scheduler"
	shippinginfra "github.com/wellnest/backend/internal/infrastructure/shipping"
	"github.com/wellnest/backend/internal/infrastructure/storage"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
	"github.com/wellnest/backend/internal/interfaces/http/handler"
	"github.com/wellnest/backend/internal/interfaces/http/middleware"
	"github.com/wellnest/backend/internal/interfaces/http/router"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	appVersion         = "1.0.0"
	invoiceLinkExpiry  = 15 * time.Minute
	carrierHTTPTimeout = 30 * time.Second
)

type telemetryStack struct {
	*telemetry.Providers
	profiler  *telemetry.Profiler
	dbMetrics *telemetry.DBMetrics
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, error) {
	tc := cfg.Telemetry
	providers, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:       tc.CollectorEndpoint,
		Insecure:       tc.Insecure,
		ServiceName:    tc.ServiceName,
		ServiceVersion: appVersion,
		Traces:         tc.Enabled,
		SamplingRatio:  tc.SamplingRatio,
		Metrics:        tc.Enabled && tc.MetricsEnabled,
		Logs:           tc.Enabled && tc.LogsEnabled,
	}, log)
	if err != nil {
		return nil, err
	}
	t := &telemetryStack{Providers: providers}

	t.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Pyroscope.Enabled,
		ServerAddress:     cfg.Pyroscope.ServerAddress,
		ApplicationName:   tc.ServiceName,
		BasicAuthUser:     cfg.Pyroscope.BasicAuthUser,
		BasicAuthPassword: cfg.Pyroscope.BasicAuthPassword,
	}, log)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("profiler: %w", err), providers.Shutdown(ctx))
	}
	// span profiles need the profiler running first
	if cfg.Pyroscope.Enabled {
		if err := t.Tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles unavailable", zap.Error(err))
		}
	}
	return t, nil
}

// Shutdown stops the pool sampler, the OTLP providers and the profiler.
func (t *telemetryStack) Shutdown(ctx context.Context) error {
	if t.dbMetrics != nil {
		t.dbMetrics.Stop()
	}
	return multierr.Append(t.Providers.Shutdown(ctx), t.profiler.Stop())
}

func instrumentDatabase(ctx context.Context, db *persistence.Database, cfg *config.Config, tel *telemetryStack, log *zap.Logger) {
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracing := telemetry.DefaultDBTracingConfig()
		tracing.Enabled = true
		tracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		tracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		if err := telemetry.RegisterDBTracing(db.DB, tracing, log); err != nil {
			log.Warn("Database tracing unavailable", zap.Error(err))
		}
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, tel.Meter, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Warn("Database metrics unavailable", zap.Error(err))
		return
	}
	tel.dbMetrics = dbMetrics
}

type application struct {
	engine     *gin.Engine
	reconciler *scheduler.PaymentReconciler
	closers    []io.Closer
	stops      []func()
	log        *zap.Logger
}

// Close releases everything buildApp opened, last opened first
func (a *application) Close() {
	for _, stop := range a.stops {
		stop()
	}
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	if err != nil {
		a.log.Warn("Errors while releasing resources", zap.Error(err))
	}
}

func buildApp(ctx context.Context, cfg *config.Config, db *persistence.Database, tel *telemetryStack, log *zap.Logger) (*application, error) {
	app := &application{log: log}

	kv, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore()
	if err != nil {
		return nil, err
	}
	if c, ok := kv.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}
	readiness := map[string]handler.Pinger{"database": db}
	if rs, ok := kv.(*cache.RedisStore); ok {
		readiness["redis"] = rs
	}

	metrics, err := telemetry.NewStoreMetrics(tel.Meter.Meter("wellnest.store"))
	if err != nil {
		return nil, fmt.Errorf("store metrics: %w", err)
	}
	retrier := retry.New(retry.PolicyFromConfig(cfg.Retry), log, retry.WithObserver(metrics.RecordRetry))

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	couponRepo := persistence.NewGormCouponRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	carts := cache.NewCartStore(kv, cart.WithTTL(cfg.Store.CartTTL))

	jwtService := auth.NewJWTService(cfg.JWT)
	revocations := auth.NewKVRevocations(kv)

	gateways, err := buildGateways(cfg, retrier)
	if err != nil {
		return nil, err
	}
	shiprocket, delhivery, err := buildCarriers(cfg, kv, retrier, log)
	if err != nil {
		return nil, err
	}

	renderer, err := printing.NewChromedpRenderer(cfg.Printing, log)
	if err != nil {
		return nil, fmt.Errorf("pdf renderer: %w", err)
	}
	app.closers = append(app.closers, renderer)
	printer, err := printing.NewInvoicePrinter(renderer, printing.SellerFrom(cfg.Store),
		printing.WithPageSize(printing.ParsePageSize(cfg.Printing.PageSize)))
	if err != nil {
		return nil, fmt.Errorf("invoice printer: %w", err)
	}
	archive, err := buildArchive(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	couponService := catalogapp.NewCouponService(couponRepo, time.Now)
	paymentService := paymentapp.NewService(paymentapp.ServiceConfig{
		Orders:      orderRepo,
		Products:    productRepo,
		Tx:          db,
		Gateways:    gateways,
		Locker:      kv,
		Idempotency: kv,
		Carts:       carts,
		Metrics:     metrics,
		Logger:      log,
	})
	numbers, err := checkout.NewShortIDNumberer(cfg.Store.OrderNumberPrefix,
		uint8(cfg.Store.OrderNumberWorker), orderRepo.ExistsByNumber)
	if err != nil {
		return nil, err
	}
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
			Flat:      valueobject.NewINR(cfg.Store.DeliveryCharge),
			FreeAbove: valueobject.NewINR(cfg.Store.FreeDeliveryAbove),
		},
		Metrics: metrics,
		Logger:  log,
	})
	workbook := export.NewOrderWorkbook()
	orderService := orderapp.NewService(orderapp.ServiceConfig{
		Orders:   orderRepo,
		Products: productRepo,
		Tx:       db,
		Exporter: workbook,
		Metrics:  metrics,
		Logger:   log,
	})
	shippingService := shippingapp.NewService(shippingapp.ServiceConfig{
		Orders:     orderRepo,
		Products:   productRepo,
		Users:      userRepo,
		Shiprocket: shiprocket,
		Delhivery:  delhivery,
		Parcel: shipping.ParcelSpec{
			WeightKg:  cfg.Shiprocket.DefaultWeight,
			LengthCm:  cfg.Shiprocket.DefaultLength,
			BreadthCm: cfg.Shiprocket.DefaultBreadth,
			HeightCm:  cfg.Shiprocket.DefaultHeight,
		},
		Metrics: metrics,
		Logger:  log,
	})
	sources := []invoiceapp.Source{invoiceapp.NewGeneratedSource(printer)}
	if shiprocket != nil {
		fetcher := shippinginfra.RetryFetcher(
			shippinginfra.NewHTTPDocumentFetcher(&http.Client{Timeout: carrierHTTPTimeout}), retrier)
		sources = append(sources, invoiceapp.NewCarrierSource(shiprocket, fetcher))
	}
	linkExpiry := cfg.Storage.PresignExpiration
	if linkExpiry <= 0 {
		linkExpiry = invoiceLinkExpiry
	}
	invoiceService := invoiceapp.NewService(orderRepo, sources,
		invoiceapp.WithArchive(archive, linkExpiry),
		invoiceapp.WithLogger(log),
	)

	if cfg.Reconcile.Enabled {
		app.reconciler, err = scheduler.NewPaymentReconciler(
			scheduler.ReconcilerConfigFrom(cfg.Reconcile), orderRepo, paymentService, log)
		if err != nil {
			return nil, err
		}
	}

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(identityapp.NewAuthService(userRepo, jwtService, revocations, mail.New(cfg.Mail, log), log)),
		Address:  handler.NewAddressHandler(identityapp.NewAddressService(userRepo)),
		Catalog:  handler.NewCatalogHandler(catalogapp.NewProductService(productRepo), couponService),
		Cart:     handler.NewCartHandler(cartapp.NewService(carts, productRepo, couponService, log)),
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Orders:   handler.NewOrderHandler(orderService, workbook.Filename),
		Payments: handler.NewPaymentHandler(paymentService),
		Invoices: handler.NewInvoiceHandler(invoiceService),
		Shipping: handler.NewShippingHandler(shippingService),
		System:   handler.NewSystemHandler(cfg.App.Name, appVersion, readiness),
	}

	engine, err := buildEngine(cfg, tel, jwtService, revocations, handlers, app, log)
	if err != nil {
		return nil, err
	}
	app.engine = engine
	return app, nil
}

func buildGateways(cfg *config.Config, retrier *retry.Retrier) (*payment.Registry, error) {
	registry := payment.NewRegistry()
	if cfg.Razorpay.Enabled {
		razorpay, err := paymentinfra.NewRazorpayAdapter(paymentinfra.RazorpayConfigFrom(cfg.Razorpay))
		if err != nil {
			return nil, fmt.Errorf("razorpay: %w", err)
		}
		registry.Register(paymentinfra.WithRetry(razorpay, retrier))
	}
	if cfg.PhonePe.Enabled {
		phonepe, err := paymentinfra.NewPhonePeAdapter(paymentinfra.PhonePeConfigFrom(cfg.PhonePe))
		if err != nil {
			return nil, fmt.Errorf("phonepe: %w", err)
		}
		registry.Register(paymentinfra.WithRetry(phonepe, retrier))
	}
	return registry, nil
}

// buildCarriers returns nil interfaces for disabled carriers so the shipping
// service reports them as unavailable
func buildCarriers(cfg *config.Config, kv cache.KV, retrier *retry.Retrier, log *zap.Logger) (shipping.ShiprocketCarrier, shipping.DelhiveryCarrier, error) {
	var (
		shiprocket shipping.ShiprocketCarrier
		delhivery  shipping.DelhiveryCarrier
	)
	if cfg.Shiprocket.Enabled {
		adapter, err := shippinginfra.NewShiprocketAdapter(shippinginfra.ShiprocketConfigFrom(cfg.Shiprocket),
			cache.NewTokenCache(kv, "shiprocket"), shippinginfra.WithShiprocketLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("shiprocket: %w", err)
		}
		shiprocket = shippinginfra.RetryShiprocket(adapter, retrier)
	}
	if cfg.Delhivery.Enabled {
		adapter, err := shippinginfra.NewDelhiveryAdapter(shippinginfra.DelhiveryConfigFrom(cfg.Delhivery))
		if err != nil {
			return nil, nil, fmt.Errorf("delhivery: %w", err)
		}
		delhivery = shippinginfra.RetryDelhivery(adapter, retrier)
	}
	return shiprocket, delhivery, nil
}

func buildArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) (invoiceapp.ArchiveStore, error) {
	if !cfg.Storage.Enabled {
		local, err := storage.NewLocalStore(cfg.Store.InvoiceArchivePath)
		if err != nil {
			return nil, fmt.Errorf("invoice archive: %w", err)
		}
		return local, nil
	}
	s3, err := storage.NewS3Store(&cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("invoice archive: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("invoice archive bucket: %w", err)
	}
	return s3, nil
}

func buildEngine(
	cfg *config.Config,
	tel *telemetryStack,
	jwtService *auth.JWTService,
	revocations auth.Revocations,
	handlers router.Handlers,
	app *application,
	log *zap.Logger,
) (*gin.Engine, error) {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	// Order matters:
	// 1. RequestID so every later log line and span carries it
	// 2. Recovery and access log
	// 3. Tracing and metrics; profiling labels wait for JWT inside the API group
	// 4. CORS before security headers so preflights short-circuit
	// 5. BodyLimit and RateLimit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName)...)
	}
	if tel.Meter.IsEnabled() {
		httpMetrics, err := middleware.HTTPMetrics(tel.Meter.Meter("wellnest.http"))
		if err != nil {
			return nil, err
		}
		engine.Use(httpMetrics)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		app.stops = append(app.stops, limiter.Stop)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	guards := router.Guards{Admin: middleware.RequireAdmin(log)}
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		app.stops = append(app.stops, authLimiter.Stop)
		guards.AuthLimit = middleware.AuthRateLimit(authLimiter)
	}

	// swagger gets its own authenticator: the API one lets /swagger through
	swaggerAuth := middleware.NewAuthenticator(jwtService, revocations, log).Require()
	engine.GET("/swagger/*any",
		middleware.DocsGate(middleware.DocsGateConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.App.IsProduction(),
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, swaggerAuth, log),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	router.HealthRoutes(engine, handlers.System)

	authn := middleware.NewAuthenticator(jwtService, revocations, log).
		Public(middleware.StorefrontPublic...).
		Public(router.APIPrefix + "/system/info")
	api := router.NewRouter(engine).Use(authn.Require())
	if cfg.Pyroscope.Enabled {
		api.Use(middleware.ProfilingLabels())
	}
	groups := router.StoreRoutes(handlers, guards)
	api.Register(groups...).Setup()
	if ce := log.Check(zap.DebugLevel, "API routes mounted"); ce != nil {
		var endpoints []string
		for _, g := range groups {
			endpoints = append(endpoints, g.Endpoints()...)
		}
		ce.Write(zap.String("prefix", router.APIPrefix), zap.Strings("endpoints", endpoints))
	}

	return engine, nil
}
