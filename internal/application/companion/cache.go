package companion

import (
	"context"
	"time"

	"github.com/companiondir/backend/internal/domain/companion"
)

// ListingCache stores snapshots of the decoded companion collection so the
// public listing does not rescan the catalog on every request
type ListingCache interface {
	// Get returns the snapshot stored under key; ok is false on a miss
	Get(ctx context.Context, key string) (items []companion.Companion, ok bool, err error)
	// Set stores a snapshot for ttl
	Set(ctx context.Context, key string, items []companion.Companion, ttl time.Duration) error
	// Invalidate drops every stored snapshot
	Invalidate(ctx context.Context) error
}

// listingCacheKey returns the snapshot key for a status filter
func listingCacheKey(status companion.Status) string {
	return "listing:" + status.String()
}
