package payment

import (
	"fmt"
	"sync"

	"github.com/wellnest/backend/internal/domain/order"
)

// Registry holds the configured gateways keyed by provider
type Registry struct {
	mu       sync.RWMutex
	gateways map[order.PaymentProvider]Gateway
}

// NewRegistry creates a registry with the given gateways
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[order.PaymentProvider]Gateway)}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register adds or replaces a gateway
func (r *Registry) Register(g Gateway) {
	if g == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Provider()] = g
}

// Get returns the gateway for provider
func (r *Registry) Get(provider order.PaymentProvider) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotConfigured, provider)
	}
	return g, nil
}

// Providers lists the configured providers
func (r *Registry) Providers() []order.PaymentProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]order.PaymentProvider, 0, len(r.gateways))
	for p := range r.gateways {
		out = append(out, p)
	}
	return out
}
