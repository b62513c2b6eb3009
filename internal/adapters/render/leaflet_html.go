package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/obs"
)

const leafletVersion = "1.9.4"

// LeafletHTMLRenderer writes a map document as a standalone HTML page that
// loads Leaflet and OpenStreetMap tiles from public CDNs.
type LeafletHTMLRenderer struct {
	Path string
}

func NewLeafletHTMLRenderer(path string) *LeafletHTMLRenderer {
	return &LeafletHTMLRenderer{Path: path}
}

func (r *LeafletHTMLRenderer) Render(ctx context.Context, doc domain.MapDocument) (err error) {
	defer obs.Time(ctx, "render.html")(&err)

	var buf bytes.Buffer
	if err := WriteLeafletHTML(&buf, doc); err != nil {
		return err
	}
	if err := writeFile(r.Path, buf.Bytes()); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// Leaflet takes [lat, lng]; everything else in the module is (lon, lat).
type latLng [2]float64

func toLatLng(c domain.Coordinate) latLng { return latLng{c.Lat, c.Lon} }

type leafletPolyline struct {
	Points  []latLng `json:"points"`
	Color   string   `json:"color"`
	Weight  int      `json:"weight"`
	Opacity float64  `json:"opacity"`
}

type leafletMarker struct {
	At    latLng `json:"at"`
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

type leafletCircle struct {
	At     latLng `json:"at"`
	Radius int    `json:"radius"`
	Color  string `json:"color"`
}

type leafletData struct {
	Center    latLng            `json:"center"`
	Zoom      int               `json:"zoom"`
	Polylines []leafletPolyline `json:"polylines"`
	Markers   []leafletMarker   `json:"markers"`
	Circles   []leafletCircle   `json:"circles"`
}

type leafletPage struct {
	Title   string
	Version string
	Data    leafletData
}

// WriteLeafletHTML renders doc to w.
func WriteLeafletHTML(w io.Writer, doc domain.MapDocument) error {
	page := leafletPage{
		Title:   doc.Title,
		Version: leafletVersion,
		Data: leafletData{
			Center:    toLatLng(doc.Center),
			Zoom:      doc.Zoom,
			Polylines: make([]leafletPolyline, 0, len(doc.Polylines)),
			Markers:   make([]leafletMarker, 0, len(doc.Markers)),
			Circles:   make([]leafletCircle, 0, len(doc.Circles)),
		},
	}

	for _, p := range doc.Polylines {
		pts := make([]latLng, 0, len(p.Path))
		for _, c := range p.Path {
			pts = append(pts, toLatLng(c))
		}
		page.Data.Polylines = append(page.Data.Polylines, leafletPolyline{
			Points:  pts,
			Color:   p.Color,
			Weight:  p.Weight,
			Opacity: p.Opacity,
		})
	}
	for _, m := range doc.Markers {
		page.Data.Markers = append(page.Data.Markers, leafletMarker{
			At:    toLatLng(m.Position),
			Label: m.Label,
			Color: m.Color,
			Icon:  m.Icon,
		})
	}
	for _, c := range doc.Circles {
		page.Data.Circles = append(page.Data.Circles, leafletCircle{
			At:     toLatLng(c.Position),
			Radius: c.RadiusPx,
			Color:  c.Color,
		})
	}

	if err := leafletTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render html: execute template: %w", err)
	}
	return nil
}

var leafletTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@{{.Version}}/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@{{.Version}}/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.pin { display: block; width: 14px; height: 14px; border-radius: 50%; border: 2px solid #fff; box-shadow: 0 0 2px #000; }
</style>
</head>
<body>
<div id="map"></div>
<script>
const doc = {{.Data}};
const map = L.map("map").setView(doc.center, doc.zoom);
L.tileLayer("https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", {
  maxZoom: 19,
  attribution: "&copy; OpenStreetMap contributors"
}).addTo(map);

for (const p of doc.polylines) {
  L.polyline(p.points, {color: p.color, weight: p.weight, opacity: p.opacity}).addTo(map);
}
for (const c of doc.circles) {
  L.circleMarker(c.at, {radius: c.radius, color: c.color, fill: true, fillColor: c.color, fillOpacity: 1}).addTo(map);
}
for (const m of doc.markers) {
  const pin = document.createElement("span");
  pin.className = "pin";
  pin.style.background = m.color;
  const popup = document.createElement("div");
  popup.textContent = m.label;
  L.marker(m.at, {icon: L.divIcon({className: "", html: pin.outerHTML, iconSize: [18, 18]})})
    .bindPopup(popup)
    .addTo(map);
}
</script>
</body>
</html>
`))
