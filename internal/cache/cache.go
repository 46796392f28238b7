// Package cache provides the single-slot cache guarding the paginated KYC
// listing query. One payload is cached at a time, for a fixed 60 seconds
// from the moment it is written; while the entry is warm every caller gets
// the same payload regardless of its own pagination arguments. Writes
// elsewhere in the engine never invalidate the entry, so a listing can lag
// the backing store by up to the TTL.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
)

// ListingTTL is how long a cached listing payload stays valid after being
// populated. Expiry is timer-based, not access-based.
const ListingTTL = 60 * time.Second

// ListingCache is a single-slot, time-expiring cache for the KYC listing.
type ListingCache interface {
	Get(ctx context.Context) (*models.KYCRecordPage, bool)
	Set(ctx context.Context, page *models.KYCRecordPage)
}

// MemoryCache is an in-process ListingCache. The clock is injectable so
// tests can drive expiry.
type MemoryCache struct {
	mu        sync.RWMutex
	entry     *models.KYCRecordPage
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewMemoryCache creates a MemoryCache with the standard listing TTL.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{ttl: ListingTTL, now: time.Now}
}

// NewMemoryCacheWithClock creates a MemoryCache with a custom TTL and clock.
func NewMemoryCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: now}
}

// Get returns the cached payload if the entry is still warm.
func (c *MemoryCache) Get(ctx context.Context) (*models.KYCRecordPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || c.now().After(c.expiresAt) {
		return nil, false
	}
	return c.entry, true
}

// Set replaces the cached payload and restarts the expiry timer.
func (c *MemoryCache) Set(ctx context.Context, page *models.KYCRecordPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = page
	c.expiresAt = c.now().Add(c.ttl)
}
