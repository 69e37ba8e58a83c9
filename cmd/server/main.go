package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "github.com/wellnest/backend/docs"
	"github.com/wellnest/backend/internal/infrastructure/config"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/persistence"
	"github.com/wellnest/backend/internal/infrastructure/retry"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
)

//	@title			Wellnest Store API
//	@version		1.0
//	@description	Storefront and admin API for the Wellnest D2C wellness store

//	@contact.name	Wellnest Engineering
//	@contact.email	engineering@wellnest.example.com

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token as "Bearer {token}"

const shutdownGrace = 30 * time.Second

func main() {
	// a missing .env is fine; deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
	_ = logger.Sync(log)
}

// run serves until ctx is cancelled, then drains requests and background
// work within shutdownGrace.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	tel, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	log = telemetry.BridgeLogger(log, tel.Logs, cfg.Telemetry.ServiceName)
	log.Info("Starting Wellnest backend", zap.String("env", cfg.App.Env), zap.String("port", cfg.App.Port))

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Closing database", zap.Error(err))
		}
	}()
	instrumentDatabase(ctx, db, cfg, tel, log)

	app, err := buildApp(ctx, cfg, db, tel, log)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer app.Close()

	if app.reconciler != nil {
		if err := app.reconciler.Start(ctx); err != nil {
			return fmt.Errorf("start payment reconciler: %w", err)
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        app.engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}
	served := make(chan error, 1)
	go func() {
		log.Info("Listening", zap.String("addr", srv.Addr))
		served <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown requested")
	case serveErr = <-served:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	}

	// ctx is already cancelled here
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if app.reconciler != nil {
		if err := app.reconciler.Stop(shutdownCtx); err != nil {
			log.Warn("Payment reconciler did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced server shutdown", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	log.Info("Server exited")
	return nil
}

// openDatabase keeps retrying the first connect so the API can boot next to
// a database container that is still starting.
func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	connectRetry := retry.New(retry.Policy{
		MaxAttempts:     6,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsed:      45 * time.Second,
	}, log, retry.WithClassifier(func(error) bool { return true }))

	db, err := persistence.Open(ctx, &cfg.Database, gormLog, connectRetry)
	if err != nil {
		return nil, err
	}
	log.Info("Database connected")
	return db, nil
}
