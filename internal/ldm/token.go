package ldm

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const tokenKey = "ldm-token"

// TokenProvider hands out the LDM auth token
type TokenProvider interface {
	// Token returns the cached token, fetching one when none is cached
	Token(ctx context.Context) (string, error)

	// Invalidate drops the cached token so the next Token call refetches
	Invalidate()
}

// FetchFunc obtains a fresh token from LDM
type FetchFunc func(ctx context.Context) (string, error)

// TokenCache caches a single token with a TTL. Concurrent misses share one
// fetch; a stale fetch racing an invalidation is harmless because any token
// LDM issues is usable.
type TokenCache struct {
	store *cache.Cache
	group singleflight.Group
	fetch FetchFunc
}

// NewTokenCache creates a token cache. ttl <= 0 keeps tokens until invalidated.
func NewTokenCache(fetch FetchFunc, ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &TokenCache{
		store: cache.New(ttl, time.Minute),
		fetch: fetch,
	}
}

// Token implements TokenProvider
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if v, ok := c.store.Get(tokenKey); ok {
		return v.(string), nil
	}

	// The shared fetch outlives any one caller's cancellation
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(tokenKey, func() (interface{}, error) {
		token, err := c.fetch(fetchCtx)
		if err != nil {
			return "", err
		}
		c.store.SetDefault(tokenKey, token)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate implements TokenProvider
func (c *TokenCache) Invalidate() {
	c.store.Delete(tokenKey)
}

// Refresh replaces the cached token with a freshly fetched one
func (c *TokenCache) Refresh(ctx context.Context) (string, error) {
	c.Invalidate()
	return c.Token(ctx)
}

// Cached returns the current token without fetching
func (c *TokenCache) Cached() (string, bool) {
	v, ok := c.store.Get(tokenKey)
	if !ok {
		return "", false
	}
	return v.(string), true
}
