package domain

import (
	"errors"
	"fmt"
)

// PlannedPath is the ordered sequence of coordinates returned by the routing
// provider for one request. Order is the direction of travel.
type PlannedPath []Coordinate

// Associates a maneuver description with an index into a PlannedPath.
// WayPoint is the first path index of the maneuver.
type InstructionStep struct {
	Instruction     string  `json:"instruction"`
	Name            string  `json:"name,omitempty"`
	Type            int     `json:"type"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	WayPoint        int     `json:"way_point"`
}

// Represents a planned route between two points as returned by the provider.
// It is immutable planning data; the engine never mutates it.
type Route struct {
	Path            PlannedPath       `json:"path"`
	Steps           []InstructionStep `json:"steps"`
	DistanceMeters  float64           `json:"distance_meters"`
	DurationSeconds float64           `json:"duration_seconds"`
}

// Origin returns the first path coordinate. The path must be non-empty.
func (r Route) Origin() Coordinate { return r.Path[0] }

// Destination returns the last path coordinate. The path must be non-empty.
func (r Route) Destination() Coordinate { return r.Path[len(r.Path)-1] }

// Validate checks the path is non-empty, every point is a WGS-84 coordinate
// and every step references a path index. Failures wrap ErrInvalidResponse
// since routes come from the provider.
func (r Route) Validate() error {
	if len(r.Path) == 0 {
		return fmt.Errorf("%w: route path is empty", ErrInvalidResponse)
	}

	var errs []error
	for i, c := range r.Path {
		if err := c.checkRange(); err != nil {
			errs = append(errs, fmt.Errorf("path point %d: %w", i, err))
		}
	}
	for i, s := range r.Steps {
		if s.WayPoint < 0 || s.WayPoint >= len(r.Path) {
			errs = append(errs, fmt.Errorf(
				"step %d way_point %d outside path of %d points",
				i, s.WayPoint, len(r.Path),
			))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, errors.Join(errs...))
	}

	return nil
}

// StepPosition returns the coordinate a step is anchored to.
func (r Route) StepPosition(s InstructionStep) Coordinate { return r.Path[s.WayPoint] }
