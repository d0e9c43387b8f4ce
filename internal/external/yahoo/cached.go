package yahoo

import (
	"context"
	"strings"
	"time"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/pkg/redis"
)

// ProfileFetcher returns a stock profile
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, symbol string) (*contracts.StockProfile, error)
}

// CachedProfiles caches profiles in Redis (no-op when Redis is disabled)
type CachedProfiles struct {
	fetcher ProfileFetcher
	cache   *redis.Cache
	ttl     time.Duration
}

// NewCachedProfiles wraps a fetcher with a profile cache
func NewCachedProfiles(fetcher ProfileFetcher, cache *redis.Cache, ttl time.Duration) *CachedProfiles {
	if ttl <= 0 {
		ttl = redis.TTLProfile
	}
	return &CachedProfiles{fetcher: fetcher, cache: cache, ttl: ttl}
}

// FetchProfile returns the cached profile or fetches and stores it
func (c *CachedProfiles) FetchProfile(ctx context.Context, symbol string) (*contracts.StockProfile, error) {
	symbol = strings.ToUpper(symbol)

	var profile contracts.StockProfile
	err := c.cache.GetOrSet(ctx, redis.ProfileKey(symbol), &profile, c.ttl, func() (interface{}, error) {
		return c.fetcher.FetchProfile(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Invalidate drops the cached profile so the next fetch scrapes again
func (c *CachedProfiles) Invalidate(ctx context.Context, symbol string) error {
	return c.cache.Delete(ctx, redis.ProfileKey(symbol))
}
