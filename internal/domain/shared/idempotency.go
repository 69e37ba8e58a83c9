package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (webhook events, callbacks)
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// KeyLocker grants short-lived exclusive ownership of a key across instances
type KeyLocker interface {
	// TryLock returns false without blocking when the key is already held
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
