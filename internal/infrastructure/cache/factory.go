package cache

import (
	"fmt"

	"github.com/companiondir/backend/internal/application/companion"
	"go.uber.org/zap"
)

// ListingCacheFactory creates listing caches based on configuration
type ListingCacheFactory struct {
	redisConfig           RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ListingCacheFactoryOption is a functional option for configuring the factory
type ListingCacheFactoryOption func(*ListingCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ListingCacheFactoryOption {
	return func(f *ListingCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) ListingCacheFactoryOption {
	return func(f *ListingCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewListingCacheFactory creates a new factory
func NewListingCacheFactory(cfg RedisConfig, opts ...ListingCacheFactoryOption) *ListingCacheFactory {
	f := &ListingCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore creates a listing cache, preferring Redis when it is configured
// and reachable. Without a Redis host the in-memory cache is used directly.
// Instances backed by the in-memory cache do not see each other's
// invalidations, so listings may lag by up to the cache TTL.
func (f *ListingCacheFactory) CreateStore() (companion.ListingCache, error) {
	if f.redisConfig.Host == "" {
		f.logger.Info("Using in-memory listing cache")
		return NewInMemoryListingCache(), nil
	}

	store, err := NewRedisListingCache(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis listing cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for listing cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory listing cache. "+
		"Listings may be stale on other instances until the cache TTL passes.",
		zap.Error(err),
	)
	return NewInMemoryListingCache(), nil
}
