package cache

import (
	"context"
	"time"
)

// TokenCache stores one bearer token per carrier account
type TokenCache struct {
	kv  KV
	key string
}

// NewTokenCache creates a token cache under "token:<name>"
func NewTokenCache(kv KV, name string) *TokenCache {
	return &TokenCache{kv: kv, key: "token:" + name}
}

// Get returns the cached token, empty when none
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	raw, ok, err := c.kv.Get(ctx, c.key)
	if err != nil || !ok {
		return "", err
	}
	return string(raw), nil
}

// Set caches token for ttl
func (c *TokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.kv.Set(ctx, c.key, []byte(token), ttl)
}

// Invalidate drops the cached token
func (c *TokenCache) Invalidate(ctx context.Context) error {
	return c.kv.Delete(ctx, c.key)
}
