package ports

import (
	"context"
	"route-deviation-service/internal/domain"
)

// Port: a response cache for provider routes keyed by profile, origin and destination.
type RouteCache interface {
	// Return the cached route and whether it was present.
	Get(ctx context.Context, key string) (domain.Route, bool, error)
	// Store a route under key, replacing any previous value.
	Put(ctx context.Context, key string, route domain.Route) error
}
