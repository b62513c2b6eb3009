package ports

import (
	"context"
	"route-deviation-service/internal/domain"
)

// Contract for retrieving a planned route between two coordinates.
type RouteProvider interface {
	// Return the planned path and instruction steps from origin to destination.
	// Errors wrap domain.ErrProviderUnavailable, domain.ErrNoRouteFound or
	// domain.ErrInvalidResponse.
	FetchRoute(ctx context.Context, origin, destination domain.Coordinate) (domain.Route, error)
}

// Optional capability: resolve free text (an address, a place name) to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (domain.Coordinate, error)
}
