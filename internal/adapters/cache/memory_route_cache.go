package cache

import (
	"context"

	cmap "github.com/orcaman/concurrent-map/v2"

	"route-deviation-service/internal/domain"
)

// MemoryRouteCache keeps routes for the lifetime of the process.
type MemoryRouteCache struct {
	entries cmap.ConcurrentMap[string, domain.Route]
}

func NewMemoryRouteCache() *MemoryRouteCache {
	return &MemoryRouteCache{entries: cmap.New[domain.Route]()}
}

func (c *MemoryRouteCache) Get(_ context.Context, key string) (domain.Route, bool, error) {
	if err := checkKey(key); err != nil {
		return domain.Route{}, false, err
	}
	r, ok := c.entries.Get(key)
	return r, ok, nil
}

func (c *MemoryRouteCache) Put(_ context.Context, key string, route domain.Route) error {
	if err := checkKey(key); err != nil {
		return err
	}
	c.entries.Set(key, route)
	return nil
}

func (c *MemoryRouteCache) Len() int { return c.entries.Count() }
