package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/obs"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves free text to a coordinate using OpenRouteService (/geocode/search).
func (o *ORSRouteProvider) Geocode(ctx context.Context, text string) (_ domain.Coordinate, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := strings.Join(strings.Fields(text), " ")
	if norm == "" {
		return domain.Coordinate{}, errors.New("geocode: text must be non-empty")
	}

	endpoint := o.cfg.BaseURL + "/geocode/search"

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("size", "1")
		if o.cfg.GeocodeCountry != "" {
			q.Set("boundary.country", o.cfg.GeocodeCountry)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("geocode %q: %w", norm, classify(err))
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: decode geocode response: %w", domain.ErrInvalidResponse, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinate{}, fmt.Errorf("%w: no geocode results for %q", domain.ErrNoRouteFound, norm)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: invalid coordinate format for %q", domain.ErrInvalidResponse, norm)
	}

	c := domain.Coordinate{Lon: coords[0], Lat: coords[1]}
	o.logger(ctx).Debug().
		Str("text", norm).
		Str("label", decoded.Features[0].Properties.Label).
		Stringer("coordinate", c).
		Msg("geocoded")

	return c, nil
}
