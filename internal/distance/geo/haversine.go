// Package geo holds the great-circle formula used for airport distances.
package geo

import (
	"math"

	"github.com/example/airdistance/internal/distance/domain"
)

const (
	// EarthRadiusMeters is the sphere radius the distances are calibrated to.
	EarthRadiusMeters = 6376500.0
	MetersPerMile     = 1609.344
)

// Haversine returns the great-circle distance between a and b in metres.
func Haversine(a, b domain.Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lng1 := toRadians(a.Lng)
	lat2 := toRadians(b.Lat)
	dlng := toRadians(b.Lng) - lng1

	sinDlat := math.Sin((lat2 - lat1) / 2)
	sinDlng := math.Sin(dlng / 2)
	h := sinDlat*sinDlat + math.Cos(lat1)*math.Cos(lat2)*sinDlng*sinDlng
	return EarthRadiusMeters * (2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h)))
}

func MetersToMiles(m float64) float64 {
	return m / MetersPerMile
}

// Miles returns the great-circle distance between a and b in statute miles.
func Miles(a, b domain.Coordinate) float64 {
	return MetersToMiles(Haversine(a, b))
}

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
