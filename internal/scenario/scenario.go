// Package scenario loads navigation demo scenarios from YAML files.
//
// Example:
//
//	name: palaiseau
//	origin: {lon: 2.200487, lat: 48.713367}
//	destination: {place: "Gare de Massy-Palaiseau"}
//	threshold_meters: 50
//	perturbation_degrees: 0.0001
//	seed: 42
//	deviations:
//	  - index: 1
//	    bearing: 90
//	    meters: 100
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"route-deviation-service/internal/adapters/sampler"
	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/ports"
)

// Point is either a coordinate or a place name to geocode.
type Point struct {
	Lon   *float64 `yaml:"lon"`
	Lat   *float64 `yaml:"lat"`
	Place string   `yaml:"place"`
}

// Deviation moves the sampled position at Index by Meters along Bearing
// (degrees clockwise from north).
type Deviation struct {
	Index   int     `yaml:"index"`
	Bearing float64 `yaml:"bearing"`
	Meters  float64 `yaml:"meters"`
}

type Scenario struct {
	Name                string      `yaml:"name"`
	Origin              Point       `yaml:"origin"`
	Destination         Point       `yaml:"destination"`
	ThresholdMeters     *float64    `yaml:"threshold_meters"`
	PerturbationDegrees *float64    `yaml:"perturbation_degrees"`
	Seed                *int64      `yaml:"seed"`
	Deviations          []Deviation `yaml:"deviations"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: read %q: %w", path, err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("load scenario %q: %w", path, err)
	}
	return s, nil
}

func Parse(b []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: parse scenario: %w", domain.ErrInvalidConfiguration, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) Validate() error {
	var errs []error

	if err := s.Origin.validate(); err != nil {
		errs = append(errs, fmt.Errorf("origin: %w", err))
	}
	if err := s.Destination.validate(); err != nil {
		errs = append(errs, fmt.Errorf("destination: %w", err))
	}
	if t := s.ThresholdMeters; t != nil && (*t <= 0 || math.IsNaN(*t) || math.IsInf(*t, 0)) {
		errs = append(errs, fmt.Errorf("threshold_meters must be positive, got %v", *t))
	}
	if s.PerturbationDegrees != nil && (*s.PerturbationDegrees < 0 || *s.PerturbationDegrees >= 1) {
		errs = append(errs, fmt.Errorf("perturbation_degrees must be in [0, 1), got %v", *s.PerturbationDegrees))
	}

	seen := make(map[int]struct{}, len(s.Deviations))
	for i, d := range s.Deviations {
		if d.Index < 0 {
			errs = append(errs, fmt.Errorf("deviations[%d]: index must be >= 0", i))
		}
		if d.Meters < 0 {
			errs = append(errs, fmt.Errorf("deviations[%d]: meters must be >= 0", i))
		}
		if _, dup := seen[d.Index]; dup {
			errs = append(errs, fmt.Errorf("deviations[%d]: duplicate index %d", i, d.Index))
		}
		seen[d.Index] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: scenario %q: %w", domain.ErrInvalidConfiguration, s.Name, errors.Join(errs...))
	}
	return nil
}

func (p Point) validate() error {
	hasCoord := p.Lon != nil || p.Lat != nil
	switch {
	case hasCoord && p.Place != "":
		return errors.New("set either lon/lat or place, not both")
	case hasCoord && (p.Lon == nil || p.Lat == nil):
		return errors.New("both lon and lat are required")
	case hasCoord:
		return p.Coordinate().Validate()
	case strings.TrimSpace(p.Place) == "":
		return errors.New("lon/lat or place is required")
	}
	return nil
}

// IsPlace reports whether the point must be geocoded.
func (p Point) IsPlace() bool { return p.Lon == nil && p.Lat == nil }

// Coordinate returns the explicit coordinate. It is the zero value for places.
func (p Point) Coordinate() domain.Coordinate {
	if p.Lon == nil || p.Lat == nil {
		return domain.Coordinate{}
	}
	return domain.Coordinate{Lon: *p.Lon, Lat: *p.Lat}
}

// Sampler layers the scripted deviations over fallback.
func (s *Scenario) Sampler(fallback ports.PositionSampler) ports.PositionSampler {
	if len(s.Deviations) == 0 {
		return fallback
	}
	ss := sampler.NewScriptedSampler(fallback)
	for _, d := range s.Deviations {
		ss.OffsetAt(d.Index, d.Bearing, d.Meters)
	}
	return ss
}
