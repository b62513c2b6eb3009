package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-deviation-service/internal/adapters/routing"
	"route-deviation-service/internal/adapters/sampler"
	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/ports"
)

var (
	origin      = domain.Coordinate{Lon: 2.200487, Lat: 48.713367}
	destination = domain.Coordinate{Lon: 2.262018, Lat: 48.721695}
)

func meters(v float64) *float64 { return &v }

// straightRoute interpolates n points between from and to.
func straightRoute(from, to domain.Coordinate, n int) domain.Route {
	path := make(domain.PlannedPath, n)
	for i := range path {
		f := 0.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		path[i] = domain.Coordinate{
			Lon: from.Lon + (to.Lon-from.Lon)*f,
			Lat: from.Lat + (to.Lat-from.Lat)*f,
		}
	}
	return domain.Route{
		Path: path,
		Steps: []domain.InstructionStep{
			{Instruction: "Head east", WayPoint: 0},
			{Instruction: "Arrive", WayPoint: n - 1},
		},
		DistanceMeters: domain.DistanceMeters(from, to),
	}
}

func TestEngineZeroPerturbationFollowsWholePath(t *testing.T) {
	for _, n := range []int{1, 2, 5, 40} {
		route := straightRoute(origin, destination, n)
		provider := routing.NewMockRouteProvider()

		e, err := NewEngine(route, destination, provider, WithSampler(sampler.NewJitterSampler(0, 1)))
		require.NoError(t, err)

		require.NoError(t, e.Walk(context.Background()))

		assert.Equal(t, Following, e.State(), "n=%d", n)
		assert.Len(t, e.Trace(), n)
		_, deviated := e.Deviation()
		assert.False(t, deviated)
		assert.Empty(t, provider.Calls())

		err = e.Recalculate(context.Background())
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Empty(t, provider.Calls())
	}
}

func TestEngineDefaultPerturbationStaysOnRoute(t *testing.T) {
	route := straightRoute(origin, destination, 200)

	e, err := NewEngine(route, destination, routing.NewMockRouteProvider(),
		WithSampler(sampler.NewJitterSampler(sampler.DefaultMagnitude, 99)))
	require.NoError(t, err)
	require.NoError(t, e.Walk(context.Background()))

	// ±0.0001° on both axes is at most ~13 m at this latitude.
	assert.Equal(t, Following, e.State())
	for _, p := range e.Trace() {
		assert.Less(t, p.DeviationMeters, 20.0)
	}
}

func TestEngineThresholdIsStrict(t *testing.T) {
	route := straightRoute(origin, destination, 3)

	cases := []struct {
		name     string
		distance float64
		want     State
	}{
		{"equal to threshold", DefaultThresholdMeters, Following},
		{"just above threshold", math.Nextafter(DefaultThresholdMeters, math.Inf(1)), Deviated},
		{"threshold plus epsilon", DefaultThresholdMeters + 1e-6, Deviated},
		{"below threshold", DefaultThresholdMeters - 1e-6, Following},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewEngine(route, destination, routing.NewMockRouteProvider(),
				WithDistanceFunc(func(_, _ domain.Coordinate) float64 { return tc.distance }))
			require.NoError(t, err)

			require.NoError(t, e.Walk(context.Background()))
			assert.Equal(t, tc.want, e.State())
		})
	}
}

func TestEngineStopsAtFirstDeviation(t *testing.T) {
	route := straightRoute(origin, destination, 5)
	replacement := straightRoute(domain.Coordinate{Lon: 2.23, Lat: 48.72}, destination, 4)
	provider := routing.NewMockRouteProvider(routing.MockResponse{Route: replacement})

	s := sampler.NewScriptedSampler(nil).OffsetAt(2, 90, 100)
	e, err := NewEngine(route, destination, provider, WithSampler(s))
	require.NoError(t, err)

	require.NoError(t, e.Walk(context.Background()))
	require.Equal(t, Deviated, e.State())

	ev, ok := e.Deviation()
	require.True(t, ok)
	assert.Equal(t, 2, ev.Index)
	assert.Len(t, e.Trace(), ev.Index+1)
	assert.Equal(t, e.Trace()[2].Position, ev.Position)
	assert.InDelta(t, 100, ev.DistanceMeters, 0.01)

	_, err = e.Advance(context.Background(), 3)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, e.Trace(), 3)

	require.NoError(t, e.Recalculate(context.Background()))
	assert.Equal(t, Recalculated, e.State())

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ev.Position, calls[0].Origin)
	assert.Equal(t, destination, calls[0].Destination)

	got, ok := e.Replacement()
	require.True(t, ok)
	assert.Equal(t, replacement, got)
	assert.NotEqual(t, e.Route().Path, got.Path)
	assert.Equal(t, route, e.Route(), "original route must be kept")

	err = e.Recalculate(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, provider.Calls(), 1)
}

func TestEngineRecalculationFailureStaysDeviated(t *testing.T) {
	route := straightRoute(origin, destination, 3)
	provider := routing.NewMockRouteProvider(routing.MockResponse{Err: domain.ErrProviderUnavailable})

	e, err := NewEngine(route, destination, provider,
		WithSampler(sampler.NewScriptedSampler(nil).OffsetAt(0, 180, 75)))
	require.NoError(t, err)
	require.NoError(t, e.Walk(context.Background()))

	err = e.Recalculate(context.Background())
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)

	assert.Equal(t, Deviated, e.State())
	assert.ErrorIs(t, e.RecalcErr(), domain.ErrProviderUnavailable)
	_, ok := e.Replacement()
	assert.False(t, ok)
	assert.Len(t, provider.Calls(), 1)

	res := e.Result()
	assert.Nil(t, res.Replacement)
	assert.NotNil(t, res.Deviation)
	assert.Error(t, res.RecalcErr)
}

func TestEngineRejectsInvalidReplacementRoute(t *testing.T) {
	route := straightRoute(origin, destination, 3)

	cases := map[string]domain.Route{
		"empty path":   {},
		"out of range": {Path: domain.PlannedPath{origin, {Lon: 2.26, Lat: 95}}},
		"bad step":     {Path: domain.PlannedPath{origin}, Steps: []domain.InstructionStep{{WayPoint: 4}}},
	}

	for name, replacement := range cases {
		t.Run(name, func(t *testing.T) {
			provider := routing.NewMockRouteProvider(routing.MockResponse{Route: replacement})
			e, err := NewEngine(route, destination, provider,
				WithSampler(sampler.NewScriptedSampler(nil).OffsetAt(1, 90, 200)))
			require.NoError(t, err)
			require.NoError(t, e.Walk(context.Background()))

			err = e.Recalculate(context.Background())
			require.ErrorIs(t, err, domain.ErrInvalidResponse)

			assert.Equal(t, Deviated, e.State())
			assert.ErrorIs(t, e.RecalcErr(), domain.ErrInvalidResponse)
			_, ok := e.Replacement()
			assert.False(t, ok)
			assert.Len(t, provider.Calls(), 1)

			_, err = e.FollowReplacement()
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestEngineAdvanceInOrder(t *testing.T) {
	e, err := NewEngine(straightRoute(origin, destination, 3), destination, routing.NewMockRouteProvider())
	require.NoError(t, err)

	_, err = e.Advance(context.Background(), 1)
	assert.Error(t, err)
	assert.Empty(t, e.Trace())

	for i := 0; i < 3; i++ {
		deviated, err := e.Advance(context.Background(), i)
		require.NoError(t, err)
		assert.False(t, deviated)
	}

	_, err = e.Advance(context.Background(), 3)
	assert.Error(t, err)
	assert.Len(t, e.Trace(), 3)
}

func TestEngineTraceIsACopy(t *testing.T) {
	e, err := NewEngine(straightRoute(origin, destination, 2), destination, routing.NewMockRouteProvider())
	require.NoError(t, err)
	require.NoError(t, e.Walk(context.Background()))

	tr := e.Trace()
	tr[0].Position = domain.Coordinate{}
	assert.Equal(t, origin, e.Trace()[0].Position)
}

func TestEngineWalkCancellationKeepsPartialTrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := ports.SamplerFunc(func(index int, planned domain.Coordinate) domain.Coordinate {
		if index == 1 {
			cancel()
		}
		return planned
	})

	e, err := NewEngine(straightRoute(origin, destination, 5), destination, routing.NewMockRouteProvider(), WithSampler(s))
	require.NoError(t, err)

	err = e.Walk(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Following, e.State())
	assert.Len(t, e.Trace(), 2)
}

func TestNewEngineRejectsInvalidConfiguration(t *testing.T) {
	route := straightRoute(origin, destination, 3)
	provider := routing.NewMockRouteProvider()

	cases := []struct {
		name  string
		route domain.Route
		dest  domain.Coordinate
		opts  []EngineOption
	}{
		{"zero threshold", route, destination, []EngineOption{WithThreshold(0)}},
		{"negative threshold", route, destination, []EngineOption{WithThreshold(-5)}},
		{"NaN threshold", route, destination, []EngineOption{WithThreshold(math.NaN())}},
		{"empty path", domain.Route{}, destination, nil},
		{"latitude out of range", route, domain.Coordinate{Lon: 2, Lat: 91}, nil},
		{"longitude out of range", route, domain.Coordinate{Lon: -181, Lat: 0}, nil},
		{"malformed path point", domain.Route{Path: domain.PlannedPath{{Lon: math.NaN(), Lat: 1}}}, destination, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(tc.route, tc.dest, provider, tc.opts...)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}

	_, err := NewEngine(route, destination, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Empty(t, provider.Calls())
}

func TestEngineFollowReplacement(t *testing.T) {
	replacement := straightRoute(domain.Coordinate{Lon: 2.23, Lat: 48.72}, destination, 3)
	provider := routing.NewMockRouteProvider(routing.MockResponse{Route: replacement})

	e, err := NewEngine(straightRoute(origin, destination, 3), destination, provider,
		WithSampler(sampler.NewScriptedSampler(nil).OffsetAt(1, 0, 60)))
	require.NoError(t, err)

	_, err = e.FollowReplacement()
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, e.Walk(context.Background()))
	require.NoError(t, e.Recalculate(context.Background()))

	next, err := e.FollowReplacement(WithSampler(sampler.Exact()))
	require.NoError(t, err)
	assert.Equal(t, Following, next.State())
	assert.Equal(t, replacement, next.Route())
	assert.Equal(t, destination, next.Destination())
	assert.Equal(t, e.Threshold(), next.Threshold())

	require.NoError(t, next.Walk(context.Background()))
	assert.Equal(t, Following, next.State())
	assert.Len(t, next.Trace(), 3)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "FOLLOWING", Following.String())
	assert.Equal(t, "DEVIATED", Deviated.String())
	assert.Equal(t, "RECALCULATED", Recalculated.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestNavigateDeviationScenario(t *testing.T) {
	route := straightRoute(origin, destination, 3)
	replacement := straightRoute(domain.Coordinate{Lon: 2.2313, Lat: 48.7184}, destination, 3)
	provider := routing.NewMockRouteProvider(
		routing.MockResponse{Route: route},
		routing.MockResponse{Route: replacement},
	)

	injected := domain.Offset(route.Path[1], 0, 100)
	s := sampler.NewScriptedSampler(nil).At(1, injected)

	res, err := Navigate(context.Background(), NavigateRequest{Origin: origin, Destination: destination}, provider, s)
	require.NoError(t, err)

	assert.Equal(t, Recalculated, res.State)
	require.NotNil(t, res.Deviation)
	assert.Equal(t, 1, res.Deviation.Index)
	assert.Len(t, res.Trace, 2)
	assert.NotEmpty(t, res.RunID)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, routing.MockCall{Origin: origin, Destination: destination}, calls[0])
	assert.Equal(t, routing.MockCall{Origin: injected, Destination: destination}, calls[1], "exactly one recalculation from the injected position")

	require.NotNil(t, res.Replacement)
	assert.Equal(t, replacement, *res.Replacement)
}

func TestNavigateWithinToleranceScenario(t *testing.T) {
	route := straightRoute(origin, destination, 3)
	provider := routing.NewMockRouteProvider(routing.MockResponse{Route: route})

	s := sampler.NewScriptedSampler(nil).
		OffsetAt(0, 45, 9.5).
		OffsetAt(1, 200, 10).
		OffsetAt(2, 315, 3)

	res, err := Navigate(context.Background(), NavigateRequest{Origin: origin, Destination: destination}, provider, s)
	require.NoError(t, err)

	assert.Equal(t, Following, res.State)
	assert.Len(t, res.Trace, 3)
	assert.Nil(t, res.Deviation)
	assert.Nil(t, res.Replacement)
	assert.Len(t, provider.Calls(), 1, "no recalculation calls")
}

func TestNavigateRecalculationFailure(t *testing.T) {
	route := straightRoute(origin, destination, 3)
	provider := routing.NewMockRouteProvider(
		routing.MockResponse{Route: route},
		routing.MockResponse{Err: domain.ErrNoRouteFound},
	)

	res, err := Navigate(context.Background(), NavigateRequest{Origin: origin, Destination: destination}, provider,
		sampler.NewScriptedSampler(nil).OffsetAt(1, 90, 500))
	require.ErrorIs(t, err, domain.ErrNoRouteFound)
	require.NotNil(t, res)

	assert.Equal(t, Deviated, res.State)
	assert.ErrorIs(t, res.RecalcErr, domain.ErrNoRouteFound)
	assert.Len(t, res.Trace, 2)
	assert.Len(t, provider.Calls(), 2)
}

func TestNavigateRejectsOutOfRangeProviderRoute(t *testing.T) {
	bad := domain.Route{Path: domain.PlannedPath{origin, {Lon: 200, Lat: 48.72}}}
	provider := routing.NewMockRouteProvider(routing.MockResponse{Route: bad})

	res, err := Navigate(context.Background(), NavigateRequest{Origin: origin, Destination: destination}, provider, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.NotErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Nil(t, res)
}

func TestNavigateFetchFailure(t *testing.T) {
	provider := routing.NewMockRouteProvider(routing.MockResponse{Err: domain.ErrProviderUnavailable})

	res, err := Navigate(context.Background(), NavigateRequest{Origin: origin, Destination: destination}, provider, nil)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Nil(t, res)
}

func TestNavigateValidatesBeforeNetwork(t *testing.T) {
	provider := routing.NewMockRouteProvider()

	cases := []NavigateRequest{
		{Origin: domain.Coordinate{Lon: 200, Lat: 0}, Destination: destination},
		{Origin: origin, Destination: domain.Coordinate{Lon: 0, Lat: -95}},
		{Origin: origin, Destination: destination, ThresholdMeters: meters(-1)},
		{Origin: origin, Destination: destination, ThresholdMeters: meters(0)},
		{Origin: origin, Destination: destination, ThresholdMeters: meters(math.NaN())},
		{Origin: origin, Destination: destination, ThresholdMeters: meters(math.Inf(1))},
	}
	for _, req := range cases {
		_, err := Navigate(context.Background(), req, provider, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration), "req=%+v err=%v", req, err)
	}

	_, err := Navigate(context.Background(), NavigateRequest{Origin: origin, Destination: destination}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	assert.Empty(t, provider.Calls())
}

func TestNavigateCustomThreshold(t *testing.T) {
	route := straightRoute(origin, destination, 3)
	provider := routing.NewMockRouteProvider(routing.MockResponse{Route: route})

	s := sampler.NewScriptedSampler(nil).OffsetAt(1, 0, 100)
	res, err := Navigate(context.Background(),
		NavigateRequest{Origin: origin, Destination: destination, ThresholdMeters: meters(150)}, provider, s)
	require.NoError(t, err)
	assert.Equal(t, Following, res.State)
}
