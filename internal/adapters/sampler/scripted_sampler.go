package sampler

import (
	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/ports"
)

// ScriptedSampler returns scripted positions for selected indices and
// delegates every other index to a fallback sampler.
type ScriptedSampler struct {
	fallback  ports.PositionSampler
	overrides map[int]func(planned domain.Coordinate) domain.Coordinate
}

// NewScriptedSampler wraps fallback. A nil fallback follows the plan exactly.
func NewScriptedSampler(fallback ports.PositionSampler) *ScriptedSampler {
	if fallback == nil {
		fallback = Exact()
	}
	return &ScriptedSampler{
		fallback:  fallback,
		overrides: map[int]func(domain.Coordinate) domain.Coordinate{},
	}
}

// At pins the position at index to c.
func (s *ScriptedSampler) At(index int, c domain.Coordinate) *ScriptedSampler {
	s.overrides[index] = func(domain.Coordinate) domain.Coordinate { return c }
	return s
}

// OffsetAt moves the planned coordinate at index by meters along bearingDeg.
func (s *ScriptedSampler) OffsetAt(index int, bearingDeg, meters float64) *ScriptedSampler {
	s.overrides[index] = func(planned domain.Coordinate) domain.Coordinate {
		return domain.Offset(planned, bearingDeg, meters)
	}
	return s
}

func (s *ScriptedSampler) Sample(index int, planned domain.Coordinate) domain.Coordinate {
	if f, ok := s.overrides[index]; ok {
		return f(planned)
	}
	return s.fallback.Sample(index, planned)
}

// Exact follows the planned path with no perturbation.
func Exact() ports.PositionSampler {
	return ports.SamplerFunc(func(_ int, planned domain.Coordinate) domain.Coordinate { return planned })
}
