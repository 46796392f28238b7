package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
)

func TestMemoryCacheMissWhenEmpty(t *testing.T) {
	c := NewMemoryCache()

	_, ok := c.Get(context.Background())

	assert.False(t, ok)
}

func TestMemoryCacheServesEntryUntilTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := NewMemoryCacheWithClock(ListingTTL, clock)

	payload := &models.KYCRecordPage{CurrentPage: 1, TotalRecords: 5}
	c.Set(context.Background(), payload)

	got, ok := c.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, payload, got)

	// Just inside the TTL the entry is still warm.
	now = now.Add(ListingTTL - time.Second)
	_, ok = c.Get(context.Background())
	assert.True(t, ok)

	// Expiry is timer-based: once the TTL elapses the entry is gone even
	// though it was read moments ago.
	now = now.Add(2 * time.Second)
	_, ok = c.Get(context.Background())
	assert.False(t, ok)
}

func TestMemoryCacheSetRestartsTimer(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := NewMemoryCacheWithClock(ListingTTL, clock)

	c.Set(context.Background(), &models.KYCRecordPage{CurrentPage: 1})
	now = now.Add(ListingTTL / 2)
	fresh := &models.KYCRecordPage{CurrentPage: 2}
	c.Set(context.Background(), fresh)

	now = now.Add(ListingTTL - time.Second)
	got, ok := c.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, fresh, got)
}
