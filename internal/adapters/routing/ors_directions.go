package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"route-deviation-service/internal/domain"
)

type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
}

// directionsResponse is the subset of the ORS GeoJSON directions response we use.
// Geometry coordinates are [lon, lat] (optionally followed by elevation).
type directionsResponse struct {
	Features []struct {
		Geometry *struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Segments []struct {
				Steps []struct {
					Distance    float64 `json:"distance"`
					Duration    float64 `json:"duration"`
					Type        int     `json:"type"`
					Instruction string  `json:"instruction"`
					Name        string  `json:"name"`
					WayPoints   []int   `json:"way_points"`
				} `json:"steps"`
			} `json:"segments"`
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// fetchDirections calls the ORS directions endpoint for a single origin->destination pair.
func (o *ORSRouteProvider) fetchDirections(
	ctx context.Context,
	origin domain.Coordinate,
	destination domain.Coordinate,
) (domain.Route, error) {
	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.cfg.BaseURL, o.cfg.Profile)

	payload, err := json.Marshal(directionsRequest{
		Coordinates:  [][]float64{origin.CoordsToList(), destination.CoordsToList()},
		Instructions: true,
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("directions request failed: %w", classify(err))
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return domain.Route{}, fmt.Errorf("%w: decode directions response: %w", domain.ErrInvalidResponse, err)
	}

	return decodeRoute(dr)
}

// decodeRoute converts the first feature of a directions response into a Route.
func decodeRoute(dr directionsResponse) (domain.Route, error) {
	if len(dr.Features) == 0 {
		return domain.Route{}, fmt.Errorf("%w: response contains no features", domain.ErrNoRouteFound)
	}

	f := dr.Features[0]
	if f.Geometry == nil {
		return domain.Route{}, fmt.Errorf("%w: feature has no geometry", domain.ErrInvalidResponse)
	}
	if len(f.Geometry.Coordinates) == 0 {
		return domain.Route{}, fmt.Errorf("%w: geometry has no coordinates", domain.ErrNoRouteFound)
	}

	path := make(domain.PlannedPath, 0, len(f.Geometry.Coordinates))
	for i, pair := range f.Geometry.Coordinates {
		if len(pair) < 2 {
			return domain.Route{}, fmt.Errorf("%w: coordinate %d has %d values", domain.ErrInvalidResponse, i, len(pair))
		}
		if math.IsNaN(pair[0]) || math.IsNaN(pair[1]) {
			return domain.Route{}, fmt.Errorf("%w: coordinate %d is not a number", domain.ErrInvalidResponse, i)
		}
		path = append(path, domain.Coordinate{Lon: pair[0], Lat: pair[1]})
	}

	var steps []domain.InstructionStep
	for si, seg := range f.Properties.Segments {
		for ti, st := range seg.Steps {
			if len(st.WayPoints) == 0 {
				return domain.Route{}, fmt.Errorf(
					"%w: segment %d step %d has no way_points",
					domain.ErrInvalidResponse, si, ti,
				)
			}
			steps = append(steps, domain.InstructionStep{
				Instruction:     st.Instruction,
				Name:            st.Name,
				Type:            st.Type,
				DistanceMeters:  st.Distance,
				DurationSeconds: st.Duration,
				WayPoint:        st.WayPoints[0],
			})
		}
	}

	route := domain.Route{
		Path:            path,
		Steps:           steps,
		DistanceMeters:  f.Properties.Summary.Distance,
		DurationSeconds: f.Properties.Summary.Duration,
	}
	if err := route.Validate(); err != nil {
		return domain.Route{}, err
	}

	return route, nil
}
