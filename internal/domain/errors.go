package domain

import "errors"

// Failure classes surfaced by the route provider and the engine.
// Adapter errors wrap one of these; callers match with errors.Is.
var (
	ErrProviderUnavailable  = errors.New("route provider unavailable")
	ErrNoRouteFound         = errors.New("no route found")
	ErrInvalidResponse      = errors.New("invalid route provider response")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
