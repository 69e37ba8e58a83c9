package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// KV is the byte-level key-value surface shared by the Redis and in-memory stores
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Backend is a store that serves every cache port
type Backend interface {
	shared.IdempotencyStore
	shared.KeyLocker
	KV
}

// Factory creates the cache backend based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore connects to Redis
func (f *Factory) CreateRedisStore() (*RedisStore, error) {
	client, err := NewRedisClient(f.redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}
	return NewRedisStore(client, f.redisConfig.Prefix), nil
}

// CreateStore tries Redis first and falls back to memory when allowed.
// The in-memory store does not share carts, locks or the Shiprocket token
// across instances, so it is only fit for a single API process
func (f *Factory) CreateStore() (Backend, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis cache store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache store. "+
		"Payment locks and carts will not be shared between instances.",
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}
