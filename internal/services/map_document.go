package services

import (
	"fmt"

	"route-deviation-service/internal/domain"
)

const (
	DefaultZoom = 15

	colorRoute       = "blue"
	colorStart       = "green"
	colorEnd         = "red"
	colorInstruction = "blue"
	colorTrace       = "black"
	colorDeviation   = "red"
	colorReplacement = "orange"
)

// BuildMapDocument lists what should be drawn for a run: the planned route,
// start and end markers, one marker per instruction, the sampled trace and,
// when present, the deviation marker and the replacement route.
func BuildMapDocument(r Result) domain.MapDocument {
	path := r.Route.Path

	doc := domain.MapDocument{
		Title: "Itinéraire",
		Zoom:  DefaultZoom,
	}
	if len(path) == 0 {
		return doc
	}
	doc.Center = path[0]

	doc.Polylines = append(doc.Polylines, domain.Polyline{
		Name:    "route",
		Path:    path,
		Color:   colorRoute,
		Weight:  5,
		Opacity: 0.7,
	})

	doc.Markers = append(doc.Markers,
		domain.Marker{Position: r.Route.Origin(), Label: "Départ", Color: colorStart},
		domain.Marker{Position: r.Destination, Label: "Arrivée", Color: colorEnd},
	)

	for _, s := range r.Route.Steps {
		if s.WayPoint < 0 || s.WayPoint >= len(path) {
			continue
		}
		label := s.Instruction
		if s.DistanceMeters > 0 {
			label = fmt.Sprintf("%s (%s)", s.Instruction, domain.FormatDistance(s.DistanceMeters))
		}
		doc.Markers = append(doc.Markers, domain.Marker{
			Position: r.Route.StepPosition(s),
			Label:    label,
			Color:    colorInstruction,
			Icon:     "info-sign",
		})
	}

	for _, p := range r.Trace {
		doc.Circles = append(doc.Circles, domain.Circle{
			Position: p.Position,
			RadiusPx: 3,
			Color:    colorTrace,
		})
	}

	if r.Deviation != nil {
		doc.Markers = append(doc.Markers, domain.Marker{
			Position: r.Deviation.Position,
			Label:    deviationLabel(r),
			Color:    colorDeviation,
			Icon:     "exclamation-sign",
		})
	}

	if r.Replacement != nil && len(r.Replacement.Path) > 0 {
		doc.Polylines = append(doc.Polylines, domain.Polyline{
			Name:    "replacement",
			Path:    r.Replacement.Path,
			Color:   colorReplacement,
			Weight:  5,
			Opacity: 0.7,
		})
	}

	return doc
}

func deviationLabel(r Result) string {
	switch {
	case r.Replacement != nil:
		return "⚠️ Sortie de l'itinéraire ! Itinéraire recalculé"
	case r.RecalcErr != nil:
		return "⚠️ Sortie de l'itinéraire ! Recalcul impossible"
	default:
		return "⚠️ Sortie de l'itinéraire ! Recalcul en cours..."
	}
}
