// Package geo contains pure geographic computation helpers.
package geo

import (
	"fmt"
	"math"

	"tripmeter/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Validate returns an ErrInvalidArgument-wrapped error when p is NaN, infinite
// or outside [-90,90]×[-180,180].
func Validate(p domain.GeoPoint) error {
	if !p.Valid() {
		return fmt.Errorf("%w: coordinate (%v, %v) out of range", domain.ErrInvalidArgument, p.Lat, p.Lng)
	}
	return nil
}

// DistanceKm returns the great-circle distance between a and b in kilometres.
// Invalid input is rejected instead of producing NaN.
func DistanceKm(a, b domain.GeoPoint) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng), nil
}

// PathLengthKm sums the distances between consecutive points.
func PathLengthKm(points []domain.GeoPoint) (float64, error) {
	var total float64
	for i := 1; i < len(points); i++ {
		d, err := DistanceKm(points[i-1], points[i])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push h a hair above 1 for antipodal points.
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
