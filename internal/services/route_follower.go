package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/metrics"
	"route-deviation-service/internal/platform/obs"
	"route-deviation-service/internal/ports"
)

// DefaultThresholdMeters is the distance a sampled position may stray from
// its planned coordinate before it counts as a deviation.
const DefaultThresholdMeters = 50.0

// ErrInvalidState is returned when an engine operation is not allowed in the
// engine's current state.
var ErrInvalidState = errors.New("operation not allowed in current engine state")

type State int

const (
	Following State = iota
	Deviated
	Recalculated
)

func (s State) String() string {
	switch s {
	case Following:
		return "FOLLOWING"
	case Deviated:
		return "DEVIATED"
	case Recalculated:
		return "RECALCULATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DistanceFunc measures the distance in meters between two coordinates.
type DistanceFunc func(a, b domain.Coordinate) float64

// Result is a snapshot of everything an engine run produced.
type Result struct {
	State       State
	Route       domain.Route
	Destination domain.Coordinate
	Trace       domain.Trace
	Deviation   *domain.DeviationEvent
	Replacement *domain.Route
	RecalcErr   error
}

// Engine walks a planned path alongside a sampled position stream and
// detects the first sample that strays beyond the threshold.
//
// States:
//
//	FOLLOWING --(distance > threshold)--> DEVIATED --(provider ok)--> RECALCULATED
//
// A failed recalculation leaves the engine in DEVIATED with the error
// recorded. An Engine is not safe for concurrent use; use one per run.
type Engine struct {
	route       domain.Route
	destination domain.Coordinate
	provider    ports.RouteProvider

	threshold float64
	sampler   ports.PositionSampler
	distance  DistanceFunc
	log       zerolog.Logger

	state       State
	trace       domain.Trace
	deviation   *domain.DeviationEvent
	replacement *domain.Route
	recalcErr   error
}

type EngineOption func(*Engine)

// WithThreshold sets the deviation threshold in meters. It must be > 0.
func WithThreshold(meters float64) EngineOption {
	return func(e *Engine) { e.threshold = meters }
}

// WithSampler sets the source of traveler positions. Without one the engine
// follows the planned path exactly.
func WithSampler(s ports.PositionSampler) EngineOption {
	return func(e *Engine) { e.sampler = s }
}

// WithDistanceFunc replaces the haversine distance.
func WithDistanceFunc(f DistanceFunc) EngineOption {
	return func(e *Engine) { e.distance = f }
}

func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine in FOLLOWING over route. destination is the
// original run's destination, used as the target of any recalculation.
// Configuration problems are reported before any sample is taken or any
// network call is made.
func NewEngine(
	route domain.Route,
	destination domain.Coordinate,
	provider ports.RouteProvider,
	opts ...EngineOption,
) (*Engine, error) {
	e := &Engine{
		route:       route,
		destination: destination,
		provider:    provider,
		threshold:   DefaultThresholdMeters,
		distance:    domain.DistanceMeters,
		log:         zerolog.Nop(),
		state:       Following,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sampler == nil {
		e.sampler = ports.SamplerFunc(func(_ int, planned domain.Coordinate) domain.Coordinate { return planned })
	}

	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	e.trace = make(domain.Trace, 0, len(route.Path))
	return e, nil
}

func (e *Engine) validate() error {
	var errs []error

	if math.IsNaN(e.threshold) || math.IsInf(e.threshold, 0) || e.threshold <= 0 {
		errs = append(errs, fmt.Errorf("threshold must be a positive number of meters, got %v", e.threshold))
	}
	if len(e.route.Path) == 0 {
		errs = append(errs, errors.New("planned path is empty"))
	}
	for i, c := range e.route.Path {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("planned path point %d: %w", i, err))
		}
	}
	if err := e.destination.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("destination: %w", err))
	}
	if e.provider == nil {
		errs = append(errs, errors.New("route provider is nil"))
	}
	if e.distance == nil {
		errs = append(errs, errors.New("distance func is nil"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, errors.Join(errs...))
	}
	return nil
}

func (e *Engine) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &e.log
}

// Advance samples the traveler position for index, appends it to the trace and
// compares it with the planned coordinate at the same index. It reports
// whether the sample is a deviation, in which case the engine moves to
// DEVIATED and accepts no further samples.
//
// Indices must be visited in order starting at 0.
func (e *Engine) Advance(ctx context.Context, index int) (bool, error) {
	if e.state != Following {
		return false, fmt.Errorf("advance %d: %w: %s", index, ErrInvalidState, e.state)
	}
	if index != len(e.trace) {
		return false, fmt.Errorf("advance: index %d out of order, next index is %d", index, len(e.trace))
	}
	if index >= len(e.route.Path) {
		return false, fmt.Errorf("advance: index %d past end of path (%d points)", index, len(e.route.Path))
	}

	planned := e.route.Path[index]
	pos := e.sampler.Sample(index, planned)
	d := e.distance(pos, planned)

	e.trace = append(e.trace, domain.SimulatedPosition{
		Index:           index,
		Position:        pos,
		Planned:         planned,
		DeviationMeters: d,
	})
	metrics.TraceSamplesTotal.Inc()

	if d > e.threshold {
		e.deviation = &domain.DeviationEvent{Index: index, Position: pos, DistanceMeters: d}
		e.state = Deviated
		metrics.DeviationsTotal.Inc()

		e.logger(ctx).Info().
			Int("index", index).
			Stringer("position", pos).
			Float64("distance_m", d).
			Float64("threshold_m", e.threshold).
			Msg("deviation detected")
		return true, nil
	}

	e.logger(ctx).Debug().
		Int("index", index).
		Float64("distance_m", d).
		Msg("on route")
	return false, nil
}

// Walk advances over the remaining planned points and stops at the first
// deviation. If ctx is cancelled between samples the walk stops and the
// partial trace stays valid.
func (e *Engine) Walk(ctx context.Context) (err error) {
	defer obs.Time(ctx, "engine.Walk")(&err)

	for i := len(e.trace); i < len(e.route.Path); i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("walk stopped at index %d: %w", i, err)
		}
		deviated, err := e.Advance(ctx, i)
		if err != nil {
			return fmt.Errorf("walk: %w", err)
		}
		if deviated {
			return nil
		}
	}

	e.logger(ctx).Info().Int("samples", len(e.trace)).Msg("route followed without deviation")
	return nil
}

// Recalculate requests a replacement route from the deviation position to the
// original destination. It makes exactly one provider call. On success the
// engine moves to RECALCULATED; on failure it stays DEVIATED, records the error
// and returns it. There is no automatic retry.
func (e *Engine) Recalculate(ctx context.Context) (err error) {
	defer obs.Time(ctx, "engine.Recalculate")(&err)

	if e.state != Deviated {
		return fmt.Errorf("recalculate: %w: %s", ErrInvalidState, e.state)
	}

	origin := e.deviation.Position
	route, err := e.provider.FetchRoute(ctx, origin, e.destination)
	if err != nil {
		metrics.RecalculationsTotal.WithLabelValues("failed").Inc()
		e.recalcErr = fmt.Errorf("recalculate from %v: %w", origin, err)
		return e.recalcErr
	}
	if err := route.Validate(); err != nil {
		metrics.RecalculationsTotal.WithLabelValues("failed").Inc()
		e.recalcErr = fmt.Errorf("recalculate from %v: replacement route: %w", origin, err)
		return e.recalcErr
	}

	e.replacement = &route
	e.recalcErr = nil
	e.state = Recalculated
	metrics.RecalculationsTotal.WithLabelValues("ok").Inc()

	e.logger(ctx).Info().
		Stringer("origin", origin).
		Stringer("destination", e.destination).
		Int("points", len(route.Path)).
		Msg("route recalculated")
	return nil
}

// FollowReplacement starts a new engine over the replacement route, keeping
// this engine's provider, threshold, sampler and distance func. Options are
// applied on top. The engine must be in RECALCULATED.
func (e *Engine) FollowReplacement(opts ...EngineOption) (*Engine, error) {
	if e.state != Recalculated {
		return nil, fmt.Errorf("follow replacement: %w: %s", ErrInvalidState, e.state)
	}

	base := []EngineOption{
		WithThreshold(e.threshold),
		WithSampler(e.sampler),
		WithDistanceFunc(e.distance),
		WithLogger(e.log),
	}
	return NewEngine(*e.replacement, e.destination, e.provider, append(base, opts...)...)
}

func (e *Engine) State() State { return e.state }

func (e *Engine) Route() domain.Route { return e.route }

func (e *Engine) Destination() domain.Coordinate { return e.destination }

func (e *Engine) Threshold() float64 { return e.threshold }

// Trace returns a copy of the samples taken so far.
func (e *Engine) Trace() domain.Trace {
	out := make(domain.Trace, len(e.trace))
	copy(out, e.trace)
	return out
}

// Deviation returns the recorded deviation, if any.
func (e *Engine) Deviation() (domain.DeviationEvent, bool) {
	if e.deviation == nil {
		return domain.DeviationEvent{}, false
	}
	return *e.deviation, true
}

// Replacement returns the recalculated route, if any. It is kept separate
// from the original route.
func (e *Engine) Replacement() (domain.Route, bool) {
	if e.replacement == nil {
		return domain.Route{}, false
	}
	return *e.replacement, true
}

// RecalcErr returns the error of the last failed recalculation.
func (e *Engine) RecalcErr() error { return e.recalcErr }

func (e *Engine) Result() Result {
	r := Result{
		State:       e.state,
		Route:       e.route,
		Destination: e.destination,
		Trace:       e.Trace(),
		RecalcErr:   e.recalcErr,
	}
	if ev, ok := e.Deviation(); ok {
		r.Deviation = &ev
	}
	if rep, ok := e.Replacement(); ok {
		r.Replacement = &rep
	}
	return r
}
