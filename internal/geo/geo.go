// Package geo implements spherical-earth great-circle math used to project
// aircraft positions forward in time.
package geo

import (
	"math"
	"time"

	"github.com/yegors/skytrack/internal/model"
)

// EarthRadiusMeters is the mean earth radius
const EarthRadiusMeters = 6371008.8

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Point is a fully known latitude/longitude pair in degrees
type Point struct {
	Lat float64
	Lon float64
}

// PointOf converts coordinates into a Point; ok is false unless both slots
// are known.
func PointOf(c *model.Coordinates) (p Point, ok bool) {
	if !c.Known() {
		return Point{}, false
	}
	lat, lon := c.LatLon()
	return Point{Lat: lat, Lon: lon}, true
}

// Coordinates converts the point back into the model representation
func (p Point) Coordinates() *model.Coordinates {
	return model.NewCoordinates(p.Lat, p.Lon)
}

// Destination returns the point reached from origin after travelling
// distanceMeters along the great circle with the given initial bearing.
func Destination(origin Point, bearingDeg, distanceMeters float64) Point {
	lat1 := origin.Lat * degToRad
	lon1 := origin.Lon * degToRad
	brg := bearingDeg * degToRad
	delta := distanceMeters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(
		math.Sin(brg)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Point{Lat: lat2 * radToDeg, Lon: normalizeLongitude(lon2 * radToDeg)}
}

// Bearing returns the forward azimuth from one point to another in degrees,
// in the range (-180, 180].
func Bearing(from, to Point) float64 {
	lat1 := from.Lat * degToRad
	lat2 := to.Lat * degToRad
	dLon := (to.Lon - from.Lon) * degToRad

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	b := math.Atan2(y, x) * radToDeg
	if b <= -180 {
		b += 360
	}
	return b
}

// NormalizeHeading maps any angle in degrees to [0, 360)
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Distance returns the great-circle distance in meters
func Distance(a, b Point) float64 {
	return angularDistance(a, b) * EarthRadiusMeters
}

// angularDistance is the haversine central angle in radians
func angularDistance(a, b Point) float64 {
	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * degToRad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Interpolate returns the point at fraction (0..1) along the great circle
// from a to b.
func Interpolate(a, b Point, fraction float64) Point {
	d := angularDistance(a, b)
	if d < 1e-12 || fraction <= 0 {
		return a
	}

	lat1, lon1 := a.Lat*degToRad, a.Lon*degToRad
	lat2, lon2 := b.Lat*degToRad, b.Lon*degToRad

	ka := math.Sin((1-fraction)*d) / math.Sin(d)
	kb := math.Sin(fraction*d) / math.Sin(d)

	x := ka*math.Cos(lat1)*math.Cos(lon1) + kb*math.Cos(lat2)*math.Cos(lon2)
	y := ka*math.Cos(lat1)*math.Sin(lon1) + kb*math.Cos(lat2)*math.Sin(lon2)
	z := ka*math.Sin(lat1) + kb*math.Sin(lat2)

	return Point{
		Lat: math.Atan2(z, math.Sqrt(x*x+y*y)) * radToDeg,
		Lon: math.Atan2(y, x) * radToDeg,
	}
}

// Extrapolate dead-reckons a flight to nowEpochSeconds. The flight is
// returned unchanged unless time of fix, velocity, direction and both
// coordinate slots are known and now is after the fix; otherwise only the
// coordinates of the returned copy differ.
func Extrapolate(f model.Flight, nowEpochSeconds int64) model.Flight {
	if f.TimePosition == nil || f.Velocity == nil || f.Direction == nil {
		return f
	}
	origin, ok := PointOf(f.Coordinates)
	if !ok {
		return f
	}
	elapsed := nowEpochSeconds - *f.TimePosition
	if elapsed <= 0 {
		return f
	}

	dest := Destination(origin, *f.Direction, *f.Velocity*float64(elapsed))

	out := f
	out.Coordinates = dest.Coordinates()
	return out
}

// PredictPath projects a flight duration ahead at constant velocity (m/s) and
// heading, then splits the great-circle arc into steps points spaced
// distance/steps apart. The first point is the origin.
func PredictPath(origin Point, velocity, heading float64, duration time.Duration, steps int) []Point {
	if steps <= 0 {
		return nil
	}

	dest := Destination(origin, heading, velocity*duration.Seconds())

	path := make([]Point, steps)
	for i := range steps {
		path[i] = Interpolate(origin, dest, float64(i)/float64(steps))
	}
	return path
}

func normalizeLongitude(lon float64) float64 {
	return math.Mod(lon+540, 360) - 180
}
