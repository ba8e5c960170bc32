// Package geometry holds the angular and spherical math used by the
// progression engine. Every function is pure and total.
package geometry

import "math"

// EarthRadiusMeters is the mean Earth radius used by HaversineDistance.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" yaml:"lon" mapstructure:"lon"`
}

// NormalizeAngleDiff returns the signed shortest rotation from current to
// target, in (-180, 180]. Positive means turn right (clockwise).
// A difference of exactly 180 is reported as +180.
func NormalizeAngleDiff(current, target float64) float64 {
	d := math.Mod(target-current, 360)
	switch {
	case d <= -180:
		d += 360
	case d > 180:
		d -= 360
	}
	if d == 0 {
		// collapse -0
		return 0
	}
	return d
}

// NormalizeHeading folds any angle into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// HaversineDistance returns the great-circle distance between a and b in meters.
func HaversineDistance(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Bearing returns the forward azimuth from a to b in [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeHeading(toDeg(math.Atan2(y, x)))
}

// MapRange clamps value into [inMin, inMax] and linearly interpolates it
// into [outMin, outMax]. A degenerate input range maps everything to outMin.
func MapRange(value, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	lo, hi := inMin, inMax
	if lo > hi {
		lo, hi = hi, lo
	}
	v := clamp(value, lo, hi)
	return outMin + (v-inMin)*(outMax-outMin)/(inMax-inMin)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }
