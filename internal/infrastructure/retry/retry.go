// Package retry runs calls to payment gateways and carriers with exponential
// backoff. Only transient failures are retried; once the attempts run out the
// caller gets shared.ErrExternalUnavailable wrapping the last failure.
package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Policy bounds a retried call
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// DefaultPolicy is three attempts starting at 300ms
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 300 * time.Millisecond,
		MaxInterval:     3 * time.Second,
		MaxElapsed:      15 * time.Second,
	}
}

// PolicyFromConfig builds a policy from config, falling back to defaults for zero values
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		p.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		p.MaxInterval = cfg.MaxInterval
	}
	if cfg.MaxElapsed > 0 {
		p.MaxElapsed = cfg.MaxElapsed
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = p.MaxElapsed
	exp.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Classifier decides whether an error is worth another attempt
type Classifier func(err error) bool

// IsTransient treats gateway/carrier unavailability and network timeouts as retryable.
// Rejections, signature failures and validation errors are permanent
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, payment.ErrGatewayUnavailable) || errors.Is(err, shipping.ErrCarrierUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type unprocessedError struct{ err error }

func (e *unprocessedError) Error() string { return e.err.Error() }
func (e *unprocessedError) Unwrap() error { return e.err }

// Unprocessed marks err as a failure the provider cannot have acted on
func Unprocessed(err error) error {
	if err == nil {
		return nil
	}
	return &unprocessedError{err: err}
}

// ForStatus marks err unprocessed when the provider turned the request away
// with 429 or 503
func ForStatus(err error, status int) error {
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		return Unprocessed(err)
	}
	return err
}

// IsUnprocessed reports whether err is known to have left the provider
// untouched: it was marked so, or the connection was never established
func IsUnprocessed(err error) bool {
	var u *unprocessedError
	if errors.As(err, &u) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// IsSafeToResend classifies failures of calls that create something at the
// provider. A timeout or a 5xx may have landed, so only unprocessed
// failures are retried
func IsSafeToResend(err error) bool {
	return IsTransient(err) && IsUnprocessed(err)
}

// Observer is told about every retry, used for metrics
type Observer func(op string, attempt int, err error)

// Retrier runs operations under a policy
type Retrier struct {
	policy    Policy
	logger    *zap.Logger
	classify  Classifier
	observers []Observer
}

// Option configures a Retrier
type Option func(*Retrier)

// WithClassifier replaces IsTransient
func WithClassifier(c Classifier) Option {
	return func(r *Retrier) {
		if c != nil {
			r.classify = c
		}
	}
}

// WithObserver adds a retry observer
func WithObserver(o Observer) Option {
	return func(r *Retrier) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// New creates a Retrier
func New(policy Policy, logger *zap.Logger, opts ...Option) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrier{
		policy:   policy,
		logger:   logger,
		classify: IsTransient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForCreates returns a Retrier with the same policy and observers that only
// retries IsSafeToResend failures
func (r *Retrier) ForCreates() *Retrier {
	c := *r
	c.classify = IsSafeToResend
	return &c
}

// Do calls fn until it succeeds, fails permanently, the context ends or the
// policy is exhausted. op names the call in logs
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	var last error

	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if !r.classify(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("external call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		for _, o := range r.observers {
			o(op, attempt, err)
		}
	}

	err := backoff.RetryNotify(operation, r.policy.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}
	if last != nil && r.classify(last) {
		r.logger.Error("external call exhausted retries",
			zap.String("operation", op),
			zap.Int("attempts", attempt),
			zap.Error(last),
		)
		return shared.WrapDomainError(shared.ErrExternalUnavailable.Code, shared.ErrExternalUnavailable.Message, last)
	}
	return err
}

// Value runs fn like Do and returns its result
func Value[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
