package render

import (
	"context"
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/obs"
)

const gpxCreator = "navsim"

// GPXRenderer writes a map document as GPX 1.1: polylines become tracks,
// markers become waypoints and the sampled trace becomes one more track.
type GPXRenderer struct {
	Path string
}

func NewGPXRenderer(path string) *GPXRenderer {
	return &GPXRenderer{Path: path}
}

func (r *GPXRenderer) Render(ctx context.Context, doc domain.MapDocument) (err error) {
	defer obs.Time(ctx, "render.gpx")(&err)

	b, err := EncodeGPX(doc)
	if err != nil {
		return err
	}
	if err := writeFile(r.Path, b); err != nil {
		return fmt.Errorf("render gpx: %w", err)
	}
	return nil
}

func gpxPoint(c domain.Coordinate) gpx.GPXPoint {
	return gpx.GPXPoint{Point: gpx.Point{Latitude: c.Lat, Longitude: c.Lon}}
}

// EncodeGPX converts doc to GPX XML.
func EncodeGPX(doc domain.MapDocument) ([]byte, error) {
	g := &gpx.GPX{
		Version: "1.1",
		Creator: gpxCreator,
		Name:    doc.Title,
	}

	for _, p := range doc.Polylines {
		seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(p.Path))}
		for _, c := range p.Path {
			seg.Points = append(seg.Points, gpxPoint(c))
		}
		g.Tracks = append(g.Tracks, gpx.GPXTrack{
			Name:     p.Name,
			Type:     p.Color,
			Segments: []gpx.GPXTrackSegment{seg},
		})
	}

	if len(doc.Circles) > 0 {
		seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(doc.Circles))}
		for _, c := range doc.Circles {
			seg.Points = append(seg.Points, gpxPoint(c.Position))
		}
		g.Tracks = append(g.Tracks, gpx.GPXTrack{
			Name:     "trace",
			Segments: []gpx.GPXTrackSegment{seg},
		})
	}

	for _, m := range doc.Markers {
		wp := gpxPoint(m.Position)
		wp.Name = m.Label
		wp.Symbol = m.Icon
		wp.Type = m.Color
		g.Waypoints = append(g.Waypoints, wp)
	}

	b, err := g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("render gpx: encode: %w", err)
	}
	return b, nil
}
