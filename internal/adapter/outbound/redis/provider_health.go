// Package redis holds cache adapters backed by Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Maxborland/cutroom/internal/module/catalog"
)

const (
	providerHealthKeyPrefix = "provider:health:"
	providerHealthTTL       = 5 * time.Minute
)

// ProviderHealthCache shares provider health state across restarts so
// a freshly started server does not hammer a provider that was already
// failing.
type ProviderHealthCache struct {
	client redis.UniversalClient
}

// NewProviderHealthCache creates a provider health cache.
func NewProviderHealthCache(client redis.UniversalClient) *ProviderHealthCache {
	return &ProviderHealthCache{client: client}
}

// GetHealth returns the cached health flag; an absent key is healthy.
func (c *ProviderHealthCache) GetHealth(ctx context.Context, p catalog.Provider) (bool, error) {
	val, err := c.client.Get(ctx, providerHealthKeyPrefix+string(p)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get health: %w", err)
	}
	return val == "1", nil
}

// SetHealth records the health flag with a TTL.
func (c *ProviderHealthCache) SetHealth(ctx context.Context, p catalog.Provider, healthy bool) error {
	val := "0"
	if healthy {
		val = "1"
	}
	if err := c.client.Set(ctx, providerHealthKeyPrefix+string(p), val, providerHealthTTL).Err(); err != nil {
		return fmt.Errorf("set health: %w", err)
	}
	return nil
}
