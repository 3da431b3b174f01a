package geo

import (
	"fmt"
	"math"

	"github.com/opencivic/civictriage/internal/models"
)

// earthRadiusKm is the mean radius of the spherical Earth model
const earthRadiusKm = 6371

// DistanceKm computes the great-circle distance between two points in
// kilometers using the haversine formula. Symmetric, and zero when the
// points coincide.
func DistanceKm(a, b models.GeoLocation) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// IsWithinRadius reports whether point lies within radiusKm of center
func IsWithinRadius(center, point models.GeoLocation, radiusKm float64) bool {
	return DistanceKm(center, point) <= radiusKm
}

// InGeofence reports whether current lies within radiusMeters of target
func InGeofence(current, target models.GeoLocation, radiusMeters float64) bool {
	return DistanceKm(current, target) <= radiusMeters/1000
}

// FormatCoordinates renders a coordinate pair with six decimal places
func FormatCoordinates(g models.GeoLocation) string {
	return fmt.Sprintf("%.6f, %.6f", g.Lat, g.Lng)
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
