package utils

import "math"

const earthRadiusMeters = 6371000.0

type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance between two points, in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// CalculateBounds returns the box that encloses a circle of radius meters
// around the point.
func CalculateBounds(lat, lon, radius float64) CoordinateBounds {
	latDelta := radius / earthRadiusMeters * 180 / math.Pi
	lonDelta := latDelta / math.Cos(toRadians(lat))
	return CoordinateBounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
