package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/metrics"
	"route-deviation-service/internal/platform/obs"
	"route-deviation-service/internal/ports"
)

const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultProfile = "driving-car"
)

// ORSConfig is the explicit configuration of an ORSRouteProvider.
// There is no process-wide default credential.
type ORSConfig struct {
	APIKey         string
	BaseURL        string
	Profile        string
	Timeout        time.Duration
	MaxAttempts    int
	GeocodeCountry string
}

// ORSRouteProvider implements RouteProvider and Geocoder using OpenRouteService.
//
// It coordinates:
//   - Directions requests (GeoJSON) for planned paths and instruction steps
//   - An optional persistent route cache
//   - Optional retry/backoff of transient failures
//
// The provider is safe for concurrent use.
type ORSRouteProvider struct {
	session    *http.Client
	cfg        ORSConfig
	backoff    time.Duration
	routeCache ports.RouteCache
	log        zerolog.Logger
}

type Option func(*ORSRouteProvider)

// WithRouteCache makes the provider consult cache before calling the network.
func WithRouteCache(cache ports.RouteCache) Option {
	return func(o *ORSRouteProvider) { o.routeCache = cache }
}

// WithHTTPClient replaces the default client (tests, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(o *ORSRouteProvider) { o.session = c }
}

// WithLogger sets the logger used when no context logger is present.
func WithLogger(l zerolog.Logger) Option {
	return func(o *ORSRouteProvider) { o.log = l }
}

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) Option {
	return func(o *ORSRouteProvider) { o.backoff = d }
}

func NewORSRouteProvider(cfg ORSConfig, opts ...Option) (*ORSRouteProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: ORS api key is empty", domain.ErrInvalidConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	provider := &ORSRouteProvider{
		session: &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		backoff: 200 * time.Millisecond,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(provider)
	}

	return provider, nil
}

// Profile returns the routing profile requested from ORS.
func (o *ORSRouteProvider) Profile() string { return o.cfg.Profile }

// CacheKey identifies a route request for caching.
func CacheKey(profile string, origin, destination domain.Coordinate) string {
	return profile + "|" + origin.Key() + "|" + destination.Key()
}

func (o *ORSRouteProvider) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &o.log
}

// FetchRoute returns the planned path and instruction steps from origin to
// destination. Coordinates are forwarded as given; range checking is the
// provider's job.
func (o *ORSRouteProvider) FetchRoute(
	ctx context.Context,
	origin domain.Coordinate,
	destination domain.Coordinate,
) (_ domain.Route, err error) {
	defer obs.Time(ctx, "ors.FetchRoute")(&err)

	key := CacheKey(o.cfg.Profile, origin, destination)

	// Check persistent route cache before issuing external API calls.
	if o.routeCache != nil {
		cached, ok, cerr := o.routeCache.Get(ctx, key)
		switch {
		case cerr != nil:
			metrics.RouteCacheLookupsTotal.WithLabelValues("error").Inc()
			o.logger(ctx).Warn().Err(cerr).Str("key", key).Msg("route cache read failed")
		case ok:
			metrics.RouteCacheLookupsTotal.WithLabelValues("hit").Inc()
			metrics.ProviderRequestsTotal.WithLabelValues("cache_hit").Inc()
			return cached, nil
		default:
			metrics.RouteCacheLookupsTotal.WithLabelValues("miss").Inc()
		}
	}

	route, err := o.fetchDirections(ctx, origin, destination)
	metrics.ProviderRequestsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return domain.Route{}, fmt.Errorf("fetch route %v -> %v: %w", origin, destination, err)
	}

	if o.routeCache != nil {
		if err := o.routeCache.Put(ctx, key, route); err != nil {
			o.logger(ctx).Warn().Err(err).Str("key", key).Msg("route cache write failed")
		}
	}

	o.logger(ctx).Info().
		Int("points", len(route.Path)).
		Int("steps", len(route.Steps)).
		Str("distance", domain.FormatDistance(route.DistanceMeters)).
		Msg("route fetched")

	return route, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoRouteFound):
		return "no_route"
	case errors.Is(err, domain.ErrInvalidResponse):
		return "invalid_response"
	default:
		return "unavailable"
	}
}
