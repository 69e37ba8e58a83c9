package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/cart"
)

const cartKeyPrefix = "cart:"

// CartStore keeps one JSON cart snapshot per customer. The key expires when
// the cart does
type CartStore struct {
	kv   KV
	opts []cart.Option
}

// NewCartStore creates a cart store over kv. opts are applied to every
// hydrated cart (TTL, clock)
func NewCartStore(kv KV, opts ...cart.Option) *CartStore {
	return &CartStore{kv: kv, opts: opts}
}

var _ cart.Store = (*CartStore)(nil)

// Load returns the stored cart or an empty one
func (s *CartStore) Load(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	raw, ok, err := s.kv.Get(ctx, cartKeyPrefix+userID.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		return cart.New(s.opts...), nil
	}
	var snapshot cart.Cart
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		// a snapshot we cannot read is treated like an expired one
		return cart.New(s.opts...), nil
	}
	return cart.Hydrate(&snapshot, s.opts...), nil
}

// Save stores the cart until its expiry. An empty or expired cart deletes the key
func (s *CartStore) Save(ctx context.Context, userID uuid.UUID, c *cart.Cart) error {
	ttl := c.TTLRemaining()
	if (c.IsEmpty() && c.CouponCode == "") || ttl <= 0 {
		return s.Delete(ctx, userID)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	return s.kv.Set(ctx, cartKeyPrefix+userID.String(), raw, ttl.Round(time.Second))
}

// Delete removes the customer's cart
func (s *CartStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.kv.Delete(ctx, cartKeyPrefix+userID.String())
}
