package payment

import (
	"context"
	"fmt"

	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/infrastructure/retry"
)

// RetryingGateway runs every gateway call through the retry policy. Sessions
// create a gateway order, so they are only resent when the gateway cannot
// have received the first attempt
type RetryingGateway struct {
	next    payment.Gateway
	retrier *retry.Retrier
	creates *retry.Retrier
}

// WithRetry wraps a gateway
func WithRetry(next payment.Gateway, retrier *retry.Retrier) *RetryingGateway {
	return &RetryingGateway{next: next, retrier: retrier, creates: retrier.ForCreates()}
}

func (g *RetryingGateway) Provider() order.PaymentProvider {
	return g.next.Provider()
}

func (g *RetryingGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	return retry.Value(ctx, g.creates, g.op("create_session"), func(ctx context.Context) (*payment.Session, error) {
		return g.next.CreateSession(ctx, req)
	})
}

func (g *RetryingGateway) FetchStatus(ctx context.Context, query payment.StatusQuery) (*payment.StatusResult, error) {
	return retry.Value(ctx, g.retrier, g.op("fetch_status"), func(ctx context.Context) (*payment.StatusResult, error) {
		return g.next.FetchStatus(ctx, query)
	})
}

// ParseWebhook is local work and is never retried
func (g *RetryingGateway) ParseWebhook(body []byte, signature string) (*payment.WebhookEvent, error) {
	v, ok := g.next.(payment.WebhookVerifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no webhooks", payment.ErrGatewayNotConfigured, g.next.Provider())
	}
	return v.ParseWebhook(body, signature)
}

func (g *RetryingGateway) op(name string) string {
	return string(g.next.Provider()) + "." + name
}

var (
	_ payment.Gateway         = (*RetryingGateway)(nil)
	_ payment.WebhookVerifier = (*RetryingGateway)(nil)
)
