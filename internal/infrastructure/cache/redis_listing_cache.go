package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/companiondir/backend/internal/application/companion"
	domain "github.com/companiondir/backend/internal/domain/companion"
	"github.com/redis/go-redis/v9"
)

const defaultListingKeyPrefix = "companion:"

// RedisListingCache implements ListingCache using Redis.
// Snapshots are stored under a generation number; Invalidate bumps the
// generation so every instance stops reading older snapshots at once.
type RedisListingCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisListingCache creates a new Redis-based listing cache
func NewRedisListingCache(cfg RedisConfig) (*RedisListingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisListingCacheWithClient(client, ""), nil
}

// NewRedisListingCacheWithClient creates a cache with an existing Redis client
func NewRedisListingCacheWithClient(client *redis.Client, keyPrefix string) *RedisListingCache {
	if keyPrefix == "" {
		keyPrefix = defaultListingKeyPrefix
	}
	return &RedisListingCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the snapshot stored under key for the current generation
func (c *RedisListingCache) Get(ctx context.Context, key string) ([]domain.Companion, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false, err
	}

	data, err := c.client.Get(ctx, c.dataKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read listing snapshot: %w", err)
	}

	items, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, err
	}
	return items, true, nil
}

// Set stores a snapshot under key for the current generation
func (c *RedisListingCache) Set(ctx context.Context, key string, items []domain.Companion, ttl time.Duration) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}

	data, err := encodeSnapshot(items)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.dataKey(gen, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store listing snapshot: %w", err)
	}
	return nil
}

// Invalidate drops every snapshot by moving to a new generation. Older
// snapshots expire through their TTL.
func (c *RedisListingCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate listing snapshots: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisListingCache) Close() error {
	return c.client.Close()
}

func (c *RedisListingCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read listing generation: %w", err)
	}
	return gen, nil
}

func (c *RedisListingCache) generationKey() string {
	return c.keyPrefix + "listing-generation"
}

func (c *RedisListingCache) dataKey(gen int64, key string) string {
	return fmt.Sprintf("%s%d:%s", c.keyPrefix, gen, key)
}

func encodeSnapshot(items []domain.Companion) ([]byte, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode listing snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) ([]domain.Companion, error) {
	var items []domain.Companion
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode listing snapshot: %w", err)
	}
	return items, nil
}

// Ensure RedisListingCache implements ListingCache
var _ companion.ListingCache = (*RedisListingCache)(nil)
