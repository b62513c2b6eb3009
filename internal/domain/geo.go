package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// EarthRadiusMeters is the sphere radius shared by DistanceMeters and Offset.
const EarthRadiusMeters = orb.EarthRadius

// Point converts the coordinate to an orb point, which shares the (lon, lat)
// order.
func (c Coordinate) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

func coordinateFromPoint(p orb.Point) Coordinate { return Coordinate{Lon: p.Lon(), Lat: p.Lat()} }

// DistanceMeters returns the great-circle (haversine) distance between two
// coordinates.
func DistanceMeters(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// Offset returns the point reached by travelling meters from c along the
// initial bearing (degrees clockwise from north) on the same sphere that
// DistanceMeters uses.
func Offset(c Coordinate, bearingDeg, meters float64) Coordinate {
	p := coordinateFromPoint(geo.PointAtBearingAndDistance(c.Point(), bearingDeg, meters))

	// Normalise to [-180, 180).
	p.Lon = math.Mod(p.Lon+540, 360) - 180
	return p
}
