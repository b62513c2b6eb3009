package domain

// Drawable primitives a map renderer must be able to persist.

type Polyline struct {
	Name    string
	Path    PlannedPath
	Color   string
	Weight  int
	Opacity float64
}

type Marker struct {
	Position Coordinate
	Label    string
	Color    string
	Icon     string
}

type Circle struct {
	Position Coordinate
	RadiusPx int
	Color    string
}

// MapDocument is the full set of drawables for one run.
type MapDocument struct {
	Title     string
	Center    Coordinate
	Zoom      int
	Polylines []Polyline
	Markers   []Marker
	Circles   []Circle
}
