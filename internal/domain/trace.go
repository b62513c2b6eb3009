package domain

// A position the traveler is believed to occupy at a given sample index,
// alongside the planned coordinate it was compared against.
type SimulatedPosition struct {
	Index           int        `json:"index"`
	Position        Coordinate `json:"position"`
	Planned         Coordinate `json:"planned"`
	DeviationMeters float64    `json:"deviation_meters"`
}

// Trace is the append-only, ordered list of sampled positions for one run.
type Trace []SimulatedPosition

// Records where the measured deviation first exceeded the threshold.
type DeviationEvent struct {
	Index          int        `json:"index"`
	Position       Coordinate `json:"position"`
	DistanceMeters float64    `json:"distance_meters"`
}

// TraceSummary aggregates a trace the way the tracking service reports a track.
type TraceSummary struct {
	Samples             int
	TraveledMeters      float64
	MaxDeviationMeters  float64
	MaxDeviationIndex   int
	MeanDeviationMeters float64
}

// Positions returns the sampled coordinates in order.
func (t Trace) Positions() PlannedPath {
	out := make(PlannedPath, 0, len(t))
	for _, p := range t {
		out = append(out, p.Position)
	}
	return out
}

// Summary computes traveled distance and deviation statistics.
func (t Trace) Summary() TraceSummary {
	s := TraceSummary{Samples: len(t), MaxDeviationIndex: -1}
	if len(t) == 0 {
		return s
	}

	var total float64
	for i, p := range t {
		if i > 0 {
			s.TraveledMeters += DistanceMeters(t[i-1].Position, p.Position)
		}
		if s.MaxDeviationIndex < 0 || p.DeviationMeters > s.MaxDeviationMeters {
			s.MaxDeviationMeters = p.DeviationMeters
			s.MaxDeviationIndex = p.Index
		}
		total += p.DeviationMeters
	}
	s.MeanDeviationMeters = total / float64(len(t))

	return s
}
