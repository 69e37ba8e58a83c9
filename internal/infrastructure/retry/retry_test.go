package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/config"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      time.Second,
	}
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	var retried []int
	r := New(fastPolicy(3), nil, WithObserver(func(_ string, attempt int, _ error) {
		retried = append(retried, attempt)
	}))

	calls := 0
	err := r.Do(context.Background(), "razorpay.create_order", func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: 502 bad gateway", payment.ErrGatewayUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetrier_ExhaustionIsExternalUnavailable(t *testing.T) {
	r := New(fastPolicy(3), nil)

	calls := 0
	err := r.Do(context.Background(), "shiprocket.rates", func(context.Context) error {
		calls++
		return fmt.Errorf("%w: connection reset", shipping.ErrCarrierUnavailable)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, shared.ErrExternalUnavailable)
	assert.ErrorIs(t, err, shipping.ErrCarrierUnavailable, "last failure stays reachable for logs")

	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "EXTERNAL_SERVICE_UNAVAILABLE", de.Code)
}

func TestRetrier_PermanentErrorStopsImmediately(t *testing.T) {
	r := New(fastPolicy(5), nil)

	calls := 0
	err := r.Do(context.Background(), "razorpay.fetch_payment", func(context.Context) error {
		calls++
		return payment.ErrInvalidSignature
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.NotErrorIs(t, err, shared.ErrExternalUnavailable)
}

func TestRetrier_ContextCancelled(t *testing.T) {
	r := New(Policy{MaxAttempts: 10, InitialInterval: time.Hour, MaxInterval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, "delhivery.create", func(context.Context) error {
			calls++
			return shipping.ErrCarrierUnavailable
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestValue(t *testing.T) {
	r := New(fastPolicy(2), nil)
	calls := 0
	got, err := Value(context.Background(), r, "phonepe.status", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", payment.ErrGatewayUnavailable
		}
		return "PAYMENT_SUCCESS", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT_SUCCESS", got)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", payment.ErrGatewayUnavailable)))
	assert.True(t, IsTransient(shipping.ErrCarrierUnavailable))
	assert.False(t, IsTransient(payment.ErrGatewayRequestFailed))
	assert.False(t, IsTransient(shipping.ErrCarrierRequestFailed))
	assert.False(t, IsTransient(nil))
}

func TestIsSafeToResend(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	readTimeout := &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"dial failure", fmt.Errorf("%w: %w", shipping.ErrCarrierUnavailable, refused), true},
		{"throttled", ForStatus(fmt.Errorf("%w: HTTP 429", payment.ErrGatewayUnavailable), http.StatusTooManyRequests), true},
		{"maintenance", ForStatus(fmt.Errorf("%w: HTTP 503", shipping.ErrCarrierUnavailable), http.StatusServiceUnavailable), true},
		{"bad gateway may have landed", ForStatus(fmt.Errorf("%w: HTTP 502", shipping.ErrCarrierUnavailable), http.StatusBadGateway), false},
		{"read timeout may have landed", fmt.Errorf("%w: %w", payment.ErrGatewayUnavailable, readTimeout), false},
		{"unprocessed rejection stays final", Unprocessed(payment.ErrGatewayRequestFailed), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSafeToResend(tt.err))
		})
	}
	assert.True(t, IsTransient(fmt.Errorf("%w: %w", payment.ErrGatewayUnavailable, readTimeout)))
	assert.Nil(t, Unprocessed(nil))
}

func TestRetrier_ForCreates(t *testing.T) {
	var retried int
	r := New(fastPolicy(3), nil, WithObserver(func(string, int, error) { retried++ }))
	creates := r.ForCreates()

	calls := 0
	err := creates.Do(context.Background(), "delhivery.create_shipment", func(context.Context) error {
		calls++
		return fmt.Errorf("%w: HTTP 502", shipping.ErrCarrierUnavailable)
	})
	assert.Equal(t, 1, calls, "a create that may have landed is not sent again")
	assert.ErrorIs(t, err, shipping.ErrCarrierUnavailable)

	calls = 0
	err = creates.Do(context.Background(), "delhivery.create_shipment", func(context.Context) error {
		calls++
		if calls == 1 {
			return ForStatus(fmt.Errorf("%w: HTTP 503", shipping.ErrCarrierUnavailable), http.StatusServiceUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retried)

	// the original keeps retrying anything transient
	calls = 0
	_ = r.Do(context.Background(), "delhivery.track", func(context.Context) error {
		calls++
		return fmt.Errorf("%w: HTTP 502", shipping.ErrCarrierUnavailable)
	})
	assert.Equal(t, 3, calls)
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RetryConfig{MaxAttempts: 5})
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, DefaultPolicy().InitialInterval, p.InitialInterval)
}
