package sampler

import (
	"math/rand"
	"sync"

	"route-deviation-service/internal/domain"
)

// DefaultMagnitude is the default per-axis perturbation in degrees
// (roughly 11 m of latitude).
const DefaultMagnitude = 0.0001

// JitterSampler perturbs each planned coordinate by an independent uniform
// offset in [-Magnitude, +Magnitude] degrees on both axes. Runs with the same
// seed produce the same positions.
type JitterSampler struct {
	mu        sync.Mutex
	magnitude float64
	rand      *rand.Rand
}

// NewJitterSampler creates a sampler. A magnitude of 0 returns planned
// coordinates unchanged.
func NewJitterSampler(magnitude float64, seed int64) *JitterSampler {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	return &JitterSampler{
		magnitude: magnitude,
		rand:      rand.New(rand.NewSource(seed)),
	}
}

func (s *JitterSampler) Magnitude() float64 { return s.magnitude }

func (s *JitterSampler) Sample(_ int, planned domain.Coordinate) domain.Coordinate {
	if s.magnitude == 0 {
		return planned
	}

	s.mu.Lock()
	dLon := (s.rand.Float64()*2 - 1) * s.magnitude
	dLat := (s.rand.Float64()*2 - 1) * s.magnitude
	s.mu.Unlock()

	return domain.Coordinate{Lon: planned.Lon + dLon, Lat: planned.Lat + dLat}
}
