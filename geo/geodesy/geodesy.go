/*
Package geodesy holds the distance, bearing and projection helpers
shared by scoring, estimation and path refinement.

Points are orb.Points, [lon, lat] in degrees.
*/
package geodesy

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rotblauer/catfuse/common"
)

// Distance is the great-circle (haversine) distance in meters.
func Distance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// Bearing is the initial great-circle bearing from a to b, in [0, 360).
func Bearing(a, b orb.Point) float64 {
	return NormalizeAngle(geo.Bearing(a, b))
}

// Destination is the point reached travelling distance meters from p
// along the great circle with initial bearing degrees.
func Destination(p orb.Point, bearing, distance float64) orb.Point {
	return geo.PointAtBearingAndDistance(p, bearing, distance)
}

// Project moves p distance meters along heading using the flat
// meters-per-degree approximation. Longitude degrees are scaled by
// cos(latitude). It is accurate for the short hops between updates.
func Project(p orb.Point, heading, distance float64) orb.Point {
	if distance == 0 {
		return p
	}
	rad := heading * math.Pi / 180
	dLat := distance * math.Cos(rad) / common.MetersPerDegreeLatitude
	cosLat := math.Cos(p.Lat() * math.Pi / 180)
	if math.Abs(cosLat) < 1e-12 {
		return orb.Point{p.Lon(), p.Lat() + dLat}
	}
	dLon := distance * math.Sin(rad) / (common.MetersPerDegreeLatitude * cosLat)
	return orb.Point{p.Lon() + dLon, p.Lat() + dLat}
}

// collinearEpsilon is the slack, in meters, below which the two sides
// of a triangle are taken to span its base exactly.
const collinearEpsilon = 1e-6

// PerpendicularDistance is the distance in meters from p to the segment
// a-b. Inside the segment it is the height of the triangle, from the
// area given by Heron's formula over the three great-circle side
// lengths. Past either endpoint it is the distance to the nearer
// endpoint.
func PerpendicularDistance(p, a, b orb.Point) float64 {
	base := Distance(a, b)
	s1 := Distance(p, a)
	if base == 0 {
		return s1
	}
	s2 := Distance(p, b)
	// An obtuse angle at a or b puts the foot of the perpendicular
	// outside the segment.
	if s1*s1 >= base*base+s2*s2 || s2*s2 >= base*base+s1*s1 {
		return math.Min(s1, s2)
	}
	s := (base + s1 + s2) / 2
	// For collinear points s-base is rounding noise, and can go negative.
	if s-base <= collinearEpsilon {
		return 0
	}
	area2 := s * (s - base) * (s - s1) * (s - s2)
	if area2 <= 0 {
		return 0
	}
	return 2 * math.Sqrt(area2) / base
}

// Length is the summed great-circle distance along the path.
func Length(path orb.LineString) float64 {
	if len(path) < 2 {
		return 0
	}
	return geo.LengthHaversine(path)
}

// NormalizeAngle maps degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// AngleDelta is the magnitude of the smallest rotation between two
// headings, in [0, 180].
func AngleDelta(a, b float64) float64 {
	d := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// BlendAngle is the weighted average of two headings, weighting a by w
// and b by 1-w, taken along the shortest arc between them.
func BlendAngle(a, b, w float64) float64 {
	a, b = NormalizeAngle(a), NormalizeAngle(b)
	diff := b - a
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return NormalizeAngle(a + (1-w)*diff)
}
