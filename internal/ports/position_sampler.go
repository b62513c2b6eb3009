package ports

import "route-deviation-service/internal/domain"

// PositionSampler produces the position the traveler occupies at a sample
// index, given the planned coordinate at that index.
type PositionSampler interface {
	Sample(index int, planned domain.Coordinate) domain.Coordinate
}

// SamplerFunc adapts a plain function to PositionSampler.
type SamplerFunc func(index int, planned domain.Coordinate) domain.Coordinate

func (f SamplerFunc) Sample(index int, planned domain.Coordinate) domain.Coordinate {
	return f(index, planned)
}
