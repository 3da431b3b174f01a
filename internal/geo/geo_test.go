package geo

import (
	"math"
	"testing"

	"github.com/opencivic/civictriage/internal/models"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name      string
		a         models.GeoLocation
		b         models.GeoLocation
		expected  float64
		tolerance float64
	}{
		{
			name:      "Same point",
			a:         models.GeoLocation{Lat: 28.6139, Lng: 77.209},
			b:         models.GeoLocation{Lat: 28.6139, Lng: 77.209},
			expected:  0,
			tolerance: 0,
		},
		{
			name:      "Delhi to Mumbai",
			a:         models.GeoLocation{Lat: 28.6139, Lng: 77.209},
			b:         models.GeoLocation{Lat: 19.076, Lng: 72.8777},
			expected:  1148,
			tolerance: 5,
		},
		{
			name:      "Roughly 100m apart",
			a:         models.GeoLocation{Lat: 28.6139, Lng: 77.209},
			b:         models.GeoLocation{Lat: 28.6148, Lng: 77.209},
			expected:  0.1,
			tolerance: 0.005,
		},
		{
			name:      "One degree of latitude",
			a:         models.GeoLocation{Lat: 0, Lng: 0},
			b:         models.GeoLocation{Lat: 1, Lng: 0},
			expected:  111.19,
			tolerance: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("Expected %.3f km (±%.3f), got %.3f km", tt.expected, tt.tolerance, got)
			}
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	pairs := []struct {
		a, b models.GeoLocation
	}{
		{models.GeoLocation{Lat: 28.6139, Lng: 77.209}, models.GeoLocation{Lat: 19.076, Lng: 72.8777}},
		{models.GeoLocation{Lat: -33.8688, Lng: 151.2093}, models.GeoLocation{Lat: 51.5074, Lng: -0.1278}},
		{models.GeoLocation{Lat: 0, Lng: 179.9}, models.GeoLocation{Lat: 0, Lng: -179.9}},
	}

	for _, p := range pairs {
		forward := DistanceKm(p.a, p.b)
		backward := DistanceKm(p.b, p.a)
		if math.Abs(forward-backward) > 1e-9 {
			t.Errorf("Expected symmetric distance, got %.9f vs %.9f", forward, backward)
		}
	}
}

func TestIsWithinRadius(t *testing.T) {
	center := models.GeoLocation{Lat: 28.6139, Lng: 77.209}
	nearby := models.GeoLocation{Lat: 28.6148, Lng: 77.209}  // ~100m
	faraway := models.GeoLocation{Lat: 28.6679, Lng: 77.209} // ~6km

	tests := []struct {
		name     string
		point    models.GeoLocation
		radiusKm float64
		expected bool
	}{
		{"Point inside radius", nearby, 0.5, true},
		{"Point outside radius", faraway, 0.5, false},
		{"Center within any radius", center, 0, true},
		{"Exactly generous radius", faraway, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinRadius(center, tt.point, tt.radiusKm); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestInGeofence(t *testing.T) {
	target := models.GeoLocation{Lat: 28.6139, Lng: 77.209}
	nearby := models.GeoLocation{Lat: 28.61395, Lng: 77.209} // ~5.5m

	if !InGeofence(nearby, target, 100) {
		t.Error("Expected point 5m away to be inside a 100m geofence")
	}
	if InGeofence(nearby, target, 1) {
		t.Error("Expected point 5m away to be outside a 1m geofence")
	}
}

func TestFormatCoordinates(t *testing.T) {
	got := FormatCoordinates(models.GeoLocation{Lat: 28.6139, Lng: 77.209})
	expected := "28.613900, 77.209000"
	if got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}
