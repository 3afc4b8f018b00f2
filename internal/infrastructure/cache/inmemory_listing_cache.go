package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/companiondir/backend/internal/application/companion"
	domain "github.com/companiondir/backend/internal/domain/companion"
)

// snapshot is a stored listing with its expiration
type snapshot struct {
	items     []domain.Companion
	expiresAt time.Time
}

// InMemoryListingCache implements ListingCache using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryListingCache struct {
	mu        sync.RWMutex
	entries   map[string]snapshot
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryListingCache creates a new in-memory listing cache.
// It starts a background goroutine to drop expired snapshots.
func NewInMemoryListingCache() *InMemoryListingCache {
	c := &InMemoryListingCache{
		entries:  make(map[string]snapshot),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns a copy of the snapshot stored under key
func (c *InMemoryListingCache) Get(ctx context.Context, key string) ([]domain.Companion, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return slices.Clone(e.items), true, nil
}

// Set stores a copy of items under key. A non-positive ttl stores nothing.
func (c *InMemoryListingCache) Set(ctx context.Context, key string, items []domain.Companion, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = snapshot{
		items:     slices.Clone(items),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Invalidate drops every snapshot
func (c *InMemoryListingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	return nil
}

// Len returns the number of stored snapshots, including expired ones not yet cleaned up
func (c *InMemoryListingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine
func (c *InMemoryListingCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	return nil
}

func (c *InMemoryListingCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

func (c *InMemoryListingCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Ensure InMemoryListingCache implements ListingCache
var _ companion.ListingCache = (*InMemoryListingCache)(nil)
