package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/infrastructure/config"
)

var ErrInvalidConfig = errors.New("invalid reconciler configuration")

// PendingOrders pages through online orders that are still waiting for payment
type PendingOrders interface {
	FindPendingOnline(ctx context.Context, q order.PendingQuery) ([]order.Order, error)
}

// PaymentSettler asks the gateway about one order and records the outcome
type PaymentSettler interface {
	Reconcile(ctx context.Context, orderID uuid.UUID) (*order.Order, error)
}

// ReconcilerConfig holds configuration for the payment reconciler
type ReconcilerConfig struct {
	// Interval between passes
	Interval time.Duration
	// MinAge skips orders younger than this, the customer may still be on the payment page
	MinAge time.Duration
	// Batch caps the orders checked per pass
	Batch int
	// OrderTimeout bounds one order's gateway round trip
	OrderTimeout time.Duration
}

// DefaultReconcilerConfig returns default configuration
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:     5 * time.Minute,
		MinAge:       15 * time.Minute,
		Batch:        50,
		OrderTimeout: 30 * time.Second,
	}
}

// ReconcilerConfigFrom maps the reconcile config section, keeping defaults for zero values
func ReconcilerConfigFrom(cfg config.ReconcileConfig) ReconcilerConfig {
	c := DefaultReconcilerConfig()
	if cfg.Interval > 0 {
		c.Interval = cfg.Interval
	}
	if cfg.MinAge > 0 {
		c.MinAge = cfg.MinAge
	}
	if cfg.Batch > 0 {
		c.Batch = cfg.Batch
	}
	return c
}

func (c ReconcilerConfig) Validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case c.MinAge < 0:
		return fmt.Errorf("%w: negative min age", ErrInvalidConfig)
	case c.Batch <= 0:
		return fmt.Errorf("%w: batch must be positive", ErrInvalidConfig)
	case c.OrderTimeout <= 0:
		return fmt.Errorf("%w: order timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// PassResult summarises one reconciliation pass
type PassResult struct {
	StartedAt time.Time
	Checked   int
	Completed int
	Failed    int
	Pending   int
	Err       error
}

// PaymentReconciler periodically settles online orders whose customers never
// came back from the gateway, so stock and status do not hang on a lost callback.
// Each pass checks the next Batch orders after the previous pass and wraps
// around once it reaches the newest, so orders that stay pending at the
// gateway cannot starve the ones behind them
type PaymentReconciler struct {
	config  ReconcilerConfig
	orders  PendingOrders
	settler PaymentSettler
	logger  *zap.Logger
	now     func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	passMu sync.Mutex
	cursor order.PendingCursor

	lastMu sync.RWMutex
	last   *PassResult
}

// NewPaymentReconciler creates a reconciler
func NewPaymentReconciler(cfg ReconcilerConfig, orders PendingOrders, settler PaymentSettler, logger *zap.Logger) (*PaymentReconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentReconciler{
		config:  cfg,
		orders:  orders,
		settler: settler,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Start runs passes every Interval until Stop or ctx ends
func (r *PaymentReconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return nil
	}
	r.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("Payment reconciler started",
		zap.Duration("interval", r.config.Interval),
		zap.Duration("min_age", r.config.MinAge),
		zap.Int("batch", r.config.Batch),
	)
	return nil
}

// Stop gracefully stops the reconciler, waiting for a running pass
func (r *PaymentReconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Payment reconciler stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Payment reconciler stop timed out")
		return ctx.Err()
	}
}

func (r *PaymentReconciler) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce checks one batch of stale pending orders. Per-order failures do not
// stop the pass; they are combined into the result's Err
func (r *PaymentReconciler) RunOnce(ctx context.Context) PassResult {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	res := PassResult{StartedAt: r.now()}
	defer func() { r.record(res) }()

	stale, err := r.orders.FindPendingOnline(ctx, order.PendingQuery{
		OlderThan: res.StartedAt.Add(-r.config.MinAge),
		After:     r.cursor,
		Limit:     r.config.Batch,
	})
	if err != nil {
		res.Err = fmt.Errorf("load pending orders: %w", err)
		r.logger.Error("Payment reconciliation failed to load orders", zap.Error(err))
		return res
	}

	for i := range stale {
		if ctx.Err() != nil {
			res.Err = multierr.Append(res.Err, ctx.Err())
			break
		}
		o := &stale[i]
		res.Checked++
		r.cursor = order.CursorAfter(o)

		orderCtx, cancel := context.WithTimeout(ctx, r.config.OrderTimeout)
		settled, err := r.settler.Reconcile(orderCtx, o.ID)
		cancel()
		if err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("order %s: %w", o.OrderNumber, err))
			continue
		}
		switch settled.PaymentStatus {
		case order.PaymentCompleted:
			res.Completed++
		case order.PaymentFailed:
			res.Failed++
		default:
			res.Pending++
		}
	}

	if len(stale) < r.config.Batch && res.Checked == len(stale) {
		r.cursor = order.PendingCursor{}
	}

	fields := []zap.Field{
		zap.Int("checked", res.Checked),
		zap.Int("completed", res.Completed),
		zap.Int("failed", res.Failed),
		zap.Int("pending", res.Pending),
	}
	if res.Err != nil {
		errs := multierr.Errors(res.Err)
		r.logger.Warn("Payment reconciliation pass finished with errors",
			append(fields, zap.Int("errors", len(errs)), zap.Errors("causes", errs))...)
	} else if res.Checked > 0 {
		r.logger.Info("Payment reconciliation pass finished", fields...)
	}
	return res
}

func (r *PaymentReconciler) record(res PassResult) {
	r.lastMu.Lock()
	defer r.lastMu.Unlock()
	r.last = &res
}

// LastPass returns the most recent pass, nil before the first one
func (r *PaymentReconciler) LastPass() *PassResult {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}
