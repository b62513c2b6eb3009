package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"route-deviation-service/internal/adapters/render"
	"route-deviation-service/internal/adapters/routing"
	"route-deviation-service/internal/adapters/sampler"
	"route-deviation-service/internal/config"
	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/logger"
	"route-deviation-service/internal/platform/metrics"
	"route-deviation-service/internal/ports"
	"route-deviation-service/internal/scenario"
	"route-deviation-service/internal/services"
)

type runOptions struct {
	origin         string
	destination    string
	fromPlace      string
	toPlace        string
	scenarioPath   string
	threshold      float64
	perturbation   float64
	seed           int64
	deviateAt      int
	deviateMeters  float64
	deviateBearing float64
	htmlPath       string
	gpxPath        string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch a route, walk it and recalculate once if the traveler strays",
		Example: `  navsim run --origin 2.200487,48.713367 --destination 2.262018,48.721695
  navsim run --from-place "Polytechnique, Palaiseau" --to-place "Massy" --deviate-at 5
  navsim run --scenario scenarios/palaiseau.yaml --gpx out/run.gpx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &opts)
			return runNavigation(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.origin, "origin", "", "origin as lon,lat")
	f.StringVar(&opts.destination, "destination", "", "destination as lon,lat")
	f.StringVar(&opts.fromPlace, "from-place", "", "origin as free text, resolved with the ORS geocoder")
	f.StringVar(&opts.toPlace, "to-place", "", "destination as free text, resolved with the ORS geocoder")
	f.StringVar(&opts.scenarioPath, "scenario", "", "YAML scenario file")
	f.Float64Var(&opts.threshold, "threshold", 0, "deviation threshold in meters (overrides DEVIATION_THRESHOLD_METERS)")
	f.Float64Var(&opts.perturbation, "perturbation", 0, "per-axis perturbation in degrees (overrides PERTURBATION_DEGREES)")
	f.Int64Var(&opts.seed, "seed", 0, "perturbation seed (overrides SIM_SEED)")
	f.IntVar(&opts.deviateAt, "deviate-at", -1, "force a deviation at this sample index")
	f.Float64Var(&opts.deviateMeters, "deviate-meters", 100, "distance of the forced deviation in meters")
	f.Float64Var(&opts.deviateBearing, "deviate-bearing", 90, "bearing of the forced deviation in degrees")
	f.StringVar(&opts.htmlPath, "html", "", "HTML map output (overrides OUTPUT_HTML)")
	f.StringVar(&opts.gpxPath, "gpx", "", "GPX output (overrides OUTPUT_GPX)")

	cmd.MarkFlagsMutuallyExclusive("origin", "from-place")
	cmd.MarkFlagsMutuallyExclusive("destination", "to-place")

	return cmd
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *runOptions) {
	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.Simulation.ThresholdMeters = opts.threshold
	}
	if f.Changed("perturbation") {
		cfg.Simulation.PerturbationDegrees = opts.perturbation
	}
	if f.Changed("seed") {
		cfg.Simulation.Seed = opts.seed
	}
	if f.Changed("html") {
		cfg.Output.HTMLPath = opts.htmlPath
	}
	if f.Changed("gpx") {
		cfg.Output.GPXPath = opts.gpxPath
	}
}

func runNavigation(ctx context.Context, cfg *config.Config, opts runOptions, out io.Writer) (err error) {
	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	ctx = log.WithContext(ctx)

	defer func() {
		if cfg.Output.MetricsTextfile == "" {
			return
		}
		if werr := metrics.WriteTextfile(cfg.Output.MetricsTextfile); werr != nil {
			log.Warn().Err(werr).Str("path", cfg.Output.MetricsTextfile).Msg("write metrics textfile")
		}
	}()

	var sc *scenario.Scenario
	if opts.scenarioPath != "" {
		if sc, err = scenario.Load(opts.scenarioPath); err != nil {
			return err
		}
		applyScenario(cfg, sc)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	routeCache, closeCache, err := openRouteCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	providerOpts := []routing.Option{routing.WithLogger(log)}
	if routeCache != nil {
		providerOpts = append(providerOpts, routing.WithRouteCache(routeCache))
	}
	provider, err := routing.NewORSRouteProvider(routing.ORSConfig{
		APIKey:         cfg.ORS.APIKey,
		BaseURL:        cfg.ORS.BaseURL,
		Profile:        cfg.ORS.Profile,
		Timeout:        cfg.ORS.Timeout,
		MaxAttempts:    cfg.ORS.MaxAttempts,
		GeocodeCountry: cfg.ORS.GeocodeCountry,
	}, providerOpts...)
	if err != nil {
		return fmt.Errorf("create route provider: %w", err)
	}

	origin, destination, err := resolveEndpoints(ctx, provider, opts, sc)
	if err != nil {
		return err
	}

	smp := buildSampler(cfg.Simulation, opts, sc)

	res, runErr := services.Navigate(ctx, services.NavigateRequest{
		Origin:          origin,
		Destination:     destination,
		ThresholdMeters: &cfg.Simulation.ThresholdMeters,
	}, provider, smp)
	if res == nil {
		return runErr
	}

	printSummary(out, res)

	if err := renderOutputs(ctx, cfg.Output, services.BuildMapDocument(res.Result), out); err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}

func applyScenario(cfg *config.Config, sc *scenario.Scenario) {
	if sc.ThresholdMeters != nil {
		cfg.Simulation.ThresholdMeters = *sc.ThresholdMeters
	}
	if sc.PerturbationDegrees != nil {
		cfg.Simulation.PerturbationDegrees = *sc.PerturbationDegrees
	}
	if sc.Seed != nil {
		cfg.Simulation.Seed = *sc.Seed
	}
}

func buildSampler(sim config.SimulationConfig, opts runOptions, sc *scenario.Scenario) ports.PositionSampler {
	var smp ports.PositionSampler = sampler.NewJitterSampler(sim.PerturbationDegrees, sim.Seed)
	if sc != nil {
		smp = sc.Sampler(smp)
	}
	if opts.deviateAt >= 0 {
		smp = sampler.NewScriptedSampler(smp).OffsetAt(opts.deviateAt, opts.deviateBearing, opts.deviateMeters)
	}
	return smp
}

// resolveEndpoints picks origin and destination from flags first, then the
// scenario, geocoding place names when needed.
func resolveEndpoints(
	ctx context.Context,
	geocoder ports.Geocoder,
	opts runOptions,
	sc *scenario.Scenario,
) (domain.Coordinate, domain.Coordinate, error) {
	var scOrigin, scDest *scenario.Point
	if sc != nil {
		scOrigin, scDest = &sc.Origin, &sc.Destination
	}

	origin, err := resolvePoint(ctx, geocoder, "origin", opts.origin, opts.fromPlace, scOrigin)
	if err != nil {
		return domain.Coordinate{}, domain.Coordinate{}, err
	}
	destination, err := resolvePoint(ctx, geocoder, "destination", opts.destination, opts.toPlace, scDest)
	if err != nil {
		return domain.Coordinate{}, domain.Coordinate{}, err
	}
	return origin, destination, nil
}

func resolvePoint(
	ctx context.Context,
	geocoder ports.Geocoder,
	name, coord, place string,
	fromScenario *scenario.Point,
) (domain.Coordinate, error) {
	switch {
	case coord != "":
		return parseCoordinate(coord)
	case place != "":
		// geocoded below
	case fromScenario != nil && !fromScenario.IsPlace():
		return fromScenario.Coordinate(), nil
	case fromScenario != nil:
		place = fromScenario.Place
	default:
		return domain.Coordinate{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidConfiguration, name)
	}

	c, err := geocoder.Geocode(ctx, place)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	return c, nil
}

// parseCoordinate parses "lon,lat".
func parseCoordinate(s string) (domain.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: coordinate %q must be lon,lat", domain.ErrInvalidConfiguration, s)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: longitude in %q: %w", domain.ErrInvalidConfiguration, s, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: latitude in %q: %w", domain.ErrInvalidConfiguration, s, err)
	}

	c := domain.Coordinate{Lon: lon, Lat: lat}
	if err := c.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return c, nil
}

func renderOutputs(ctx context.Context, cfg config.OutputConfig, doc domain.MapDocument, out io.Writer) error {
	type target struct {
		path     string
		renderer ports.MapRenderer
	}

	var targets []target
	if cfg.HTMLPath != "" {
		targets = append(targets, target{cfg.HTMLPath, render.NewLeafletHTMLRenderer(cfg.HTMLPath)})
	}
	if cfg.GPXPath != "" {
		targets = append(targets, target{cfg.GPXPath, render.NewGPXRenderer(cfg.GPXPath)})
	}

	var errs []error
	for _, t := range targets {
		if err := t.renderer.Render(ctx, doc); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "Map saved to %s\n", t.path)
	}
	return errors.Join(errs...)
}

func printSummary(out io.Writer, res *services.RunResult) {
	summary := res.Trace.Summary()

	fmt.Fprintf(out, "Run %s\n", res.RunID)
	fmt.Fprintf(out, "Route: %s, %s, %d points\n",
		domain.FormatDistance(res.Route.DistanceMeters),
		domain.FormatDuration(res.Route.DurationSeconds),
		len(res.Route.Path),
	)
	for i, s := range res.Route.Steps {
		fmt.Fprintf(out, "  %2d. %s (%s)\n", i+1, s.Instruction, domain.FormatDistance(s.DistanceMeters))
	}

	fmt.Fprintf(out, "State: %s after %d samples (max deviation %.1f m)\n",
		res.State, summary.Samples, summary.MaxDeviationMeters)

	if res.Deviation != nil {
		fmt.Fprintf(out, "Deviation at sample %d, %v, %.1f m off route\n",
			res.Deviation.Index, res.Deviation.Position, res.Deviation.DistanceMeters)
	}
	switch {
	case res.Replacement != nil:
		fmt.Fprintf(out, "Recalculated: %s, %s, %d points\n",
			domain.FormatDistance(res.Replacement.DistanceMeters),
			domain.FormatDuration(res.Replacement.DurationSeconds),
			len(res.Replacement.Path),
		)
	case res.RecalcErr != nil:
		fmt.Fprintf(out, "Recalculation failed: %v\n", res.RecalcErr)
	}
}
