package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/obs"
	"route-deviation-service/internal/ports"
)

type NavigateRequest struct {
	Origin      domain.Coordinate
	Destination domain.Coordinate

	// ThresholdMeters must be > 0 when set; nil selects DefaultThresholdMeters.
	ThresholdMeters *float64
}

// RunResult is the outcome of one navigation run.
type RunResult struct {
	RunID  string
	Origin domain.Coordinate
	Result
}

// Navigate fetches the planned route, walks it with positions from sampler
// and, if the walk deviates, requests one replacement route from the
// deviation position.
//
// Errors from the initial fetch are returned with a nil result. A failed
// recalculation returns both the partial result (state DEVIATED, RecalcErr
// set) and the error.
func Navigate(
	ctx context.Context,
	req NavigateRequest,
	provider ports.RouteProvider,
	sampler ports.PositionSampler,
	opts ...EngineOption,
) (_ *RunResult, err error) {
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("navigate: %w: route provider is nil", domain.ErrInvalidConfiguration)
	}

	threshold := DefaultThresholdMeters
	if req.ThresholdMeters != nil {
		threshold = *req.ThresholdMeters
	}

	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	defer obs.Time(ctx, "navigate")(&err)

	route, err := provider.FetchRoute(ctx, req.Origin, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("navigate: fetch route: %w", err)
	}
	if err := route.Validate(); err != nil {
		return nil, fmt.Errorf("navigate: fetch route: %w", err)
	}

	engineOpts := append([]EngineOption{WithThreshold(threshold), WithSampler(sampler)}, opts...)
	engine, err := NewEngine(route, req.Destination, provider, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	run := func() *RunResult {
		return &RunResult{RunID: runID, Origin: req.Origin, Result: engine.Result()}
	}

	if err := engine.Walk(ctx); err != nil {
		return run(), fmt.Errorf("navigate: %w", err)
	}

	if engine.State() == Deviated {
		if err := engine.Recalculate(ctx); err != nil {
			return run(), fmt.Errorf("navigate: %w", err)
		}
	}

	res := run()
	summary := res.Trace.Summary()
	zerolog.Ctx(ctx).Info().
		Str("state", res.State.String()).
		Int("samples", summary.Samples).
		Str("traveled", domain.FormatDistance(summary.TraveledMeters)).
		Float64("max_deviation_m", summary.MaxDeviationMeters).
		Msg("navigation run complete")

	return res, nil
}

func validateRequest(req NavigateRequest) error {
	if err := req.Origin.Validate(); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if err := req.Destination.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if t := req.ThresholdMeters; t != nil && (*t <= 0 || math.IsNaN(*t) || math.IsInf(*t, 0)) {
		return fmt.Errorf("%w: threshold must be positive, got %v", domain.ErrInvalidConfiguration, *t)
	}
	return nil
}
