// Package pricing computes fares from distance, fare profiles and multipliers.
package pricing

import (
	"fmt"
	"math"

	"tripmeter/internal/domain"
)

// EstimateFare returns
//
//	max(minimumFare, (baseFare + distanceKm·perKmRate) × time × vehicle × demand)
//
// rounded half-up to the smallest currency unit. Unset multipliers count as 1.0.
func EstimateFare(distanceKm float64, profile domain.FareProfile, m domain.Multipliers) (domain.Money, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return 0, fmt.Errorf("%w: distance %v km", domain.ErrInvalidArgument, distanceKm)
	}
	if !profile.Valid() {
		return 0, fmt.Errorf("%w: fare profile %q has negative rates", domain.ErrInvalidArgument, profile.VehicleClass)
	}
	m = m.Normalized()
	if m.Time < 0 || m.Vehicle < 0 || m.Demand < 0 {
		return 0, fmt.Errorf("%w: negative multiplier %+v", domain.ErrInvalidArgument, m)
	}

	raw := (float64(profile.BaseFare) + distanceKm*float64(profile.PerKmRate)) * m.Product()
	fare := roundHalfUp(raw)
	if fare < profile.MinimumFare {
		return profile.MinimumFare, nil
	}
	return fare, nil
}

// Percentage returns amount × rate rounded half-up.
func Percentage(amount domain.Money, rate float64) domain.Money {
	return roundHalfUp(float64(amount) * rate)
}

func roundHalfUp(v float64) domain.Money {
	return domain.Money(math.Floor(v + 0.5))
}
