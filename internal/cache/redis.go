package cache

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
)

// listingKey is the single cache slot; the payload is not keyed by page or
// page size.
const listingKey = "kyc:listing"

// RedisCache is a redis-backed ListingCache, used when the engine runs with
// more than one instance. Expiry is handled by redis itself via SET EX.
type RedisCache struct {
	client *redis.Client
}

// NewRedisClient creates a redis client from a connection URL.
func NewRedisClient(redisURL, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts.Password = password
	}
	opts.DB = db
	return redis.NewClient(opts), nil
}

// NewRedisCache creates a redis-backed listing cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached payload if the key has not expired. Redis errors
// are treated as a cache miss so the listing query still runs.
func (c *RedisCache) Get(ctx context.Context) (*models.KYCRecordPage, bool) {
	val, err := c.client.Get(ctx, listingKey).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Error reading listing cache: %v", err)
		}
		return nil, false
	}

	var page models.KYCRecordPage
	if err := json.Unmarshal([]byte(val), &page); err != nil {
		log.Printf("Error decoding listing cache payload: %v", err)
		return nil, false
	}
	return &page, true
}

// Set stores the payload with the standard listing TTL. Failures are logged
// and dropped; caching is best effort.
func (c *RedisCache) Set(ctx context.Context, page *models.KYCRecordPage) {
	data, err := json.Marshal(page)
	if err != nil {
		log.Printf("Error encoding listing cache payload: %v", err)
		return
	}
	if err := c.client.Set(ctx, listingKey, data, ListingTTL).Err(); err != nil {
		log.Printf("Error writing listing cache: %v", err)
	}
}
