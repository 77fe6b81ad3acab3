package rbac

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aspect-console/aspect/pkg/observability"
)

// CachedSource wraps a Source with an expirable LRU keyed by email.
// Not-registered results are never cached, so a user registered after a
// failed attempt is picked up on their next request.
type CachedSource struct {
	source  Source
	cache   *expirable.LRU[string, PermissionSet]
	metrics *observability.Metrics
}

// NewCachedSource creates a caching layer over source. Entries expire after
// ttl; size bounds the number of cached principals. metrics may be nil.
func NewCachedSource(source Source, size int, ttl time.Duration, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		source:  source,
		cache:   expirable.NewLRU[string, PermissionSet](size, nil, ttl),
		metrics: metrics,
	}
}

// PermissionsForEmail returns the cached snapshot for email, resolving and
// caching it on a miss.
func (c *CachedSource) PermissionsForEmail(ctx context.Context, email string) (PermissionSet, error) {
	key := strings.ToLower(email)

	if set, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.PermissionCacheHits.Inc()
		}
		return set, nil
	}
	if c.metrics != nil {
		c.metrics.PermissionCacheMisses.Inc()
	}

	set, err := c.source.PermissionsForEmail(ctx, key)
	if err != nil {
		return PermissionSet{}, err
	}
	c.cache.Add(key, set)
	return set, nil
}

// Invalidate drops the cached snapshot for one email
func (c *CachedSource) Invalidate(email string) {
	c.cache.Remove(strings.ToLower(email))
}

// Purge drops every cached snapshot. Called after role or permission
// mutations, which can change any principal's effective set.
func (c *CachedSource) Purge() {
	c.cache.Purge()
}

var _ Source = (*CachedSource)(nil)
