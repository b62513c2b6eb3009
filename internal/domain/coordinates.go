package domain

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Immutable geographic coordinates (longitude, latitude) in WGS-84 degrees.
// Every component uses this order; only the HTML renderer flips it.
type Coordinate struct {
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinate) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Key renders the coordinate with micro-degree precision for cache keys.
func (c Coordinate) Key() string { return fmt.Sprintf("%.6f,%.6f", c.Lon, c.Lat) }

func (c Coordinate) String() string { return fmt.Sprintf("(%.6f, %.6f)", c.Lon, c.Lat) }

// Validate rejects coordinates outside the WGS-84 ranges.
func (c Coordinate) Validate() error {
	if err := c.checkRange(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}

func (c Coordinate) checkRange() error {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return fmt.Errorf("coordinate %v is not finite", c)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("coordinate %v: %w", c, err)
	}
	return nil
}
