// Package settings caches active provider configuration reads. The cache is
// an explicit object with an injected TTL and an explicit invalidation call;
// the admin handlers invalidate on save and activate.
package settings

import (
	"context"
	"sync"
	"time"

	"shipnotify/internal/domain"
	"shipnotify/internal/observability"
	"shipnotify/internal/store"
)

// Source is the uncached read side, implemented by the Postgres store.
type Source interface {
	GetActiveConfig(ctx context.Context, tenantID string, channel domain.Channel) (store.TenantProviderConfig, bool, error)
}

type cacheKey struct {
	tenantID string
	channel  domain.Channel
}

type cacheEntry struct {
	cfg       store.TenantProviderConfig
	found     bool
	expiresAt time.Time
}

type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func NewCache(src Source, ttl time.Duration) *Cache {
	return &Cache{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// GetActiveConfig returns the tenant's active config for the channel,
// serving from cache within the TTL. Negative results are cached too, so a
// tenant without configuration does not hit the store on every event.
func (c *Cache) GetActiveConfig(ctx context.Context, tenantID string, channel domain.Channel) (store.TenantProviderConfig, bool, error) {
	key := cacheKey{tenantID: tenantID, channel: channel}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		observability.ConfigCache.WithLabelValues("hit").Inc()
		return e.cfg, e.found, nil
	}
	observability.ConfigCache.WithLabelValues("miss").Inc()

	cfg, found, err := c.src.GetActiveConfig(ctx, tenantID, channel)
	if err != nil {
		return store.TenantProviderConfig{}, false, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{cfg: cfg, found: found, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return cfg, found, nil
}

// Invalidate drops the cached entry for one (tenant, channel).
func (c *Cache) Invalidate(tenantID string, channel domain.Channel) {
	c.mu.Lock()
	delete(c.entries, cacheKey{tenantID: tenantID, channel: channel})
	c.mu.Unlock()
}
