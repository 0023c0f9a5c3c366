package pricing

import "time"

// TimeRules maps the hour of day to a time multiplier.
type TimeRules struct {
	PeakMultiplier  float64
	NightMultiplier float64
	Location        *time.Location
}

// DefaultTimeRules returns the standard peak (07–10, 16–19) and night
// (22–05) surcharges.
func DefaultTimeRules() TimeRules {
	return TimeRules{
		PeakMultiplier:  1.2,
		NightMultiplier: 1.3,
		Location:        time.UTC,
	}
}

// Multiplier returns the time multiplier for t.
func (r TimeRules) Multiplier(t time.Time) float64 {
	if r.Location != nil {
		t = t.In(r.Location)
	}
	hour := t.Hour()
	switch {
	case hour >= 22 || hour < 5:
		return orOne(r.NightMultiplier)
	case (hour >= 7 && hour < 10) || (hour >= 16 && hour < 19):
		return orOne(r.PeakMultiplier)
	default:
		return 1
	}
}

// VehicleMultipliers maps a vehicle class to its multiplier; unknown classes get 1.0.
type VehicleMultipliers map[string]float64

// For returns the multiplier of vehicleClass.
func (v VehicleMultipliers) For(vehicleClass string) float64 {
	if m, ok := v[normalizeClass(vehicleClass)]; ok {
		return orOne(m)
	}
	return 1
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

// NewVehicleMultipliers copies m with normalized class keys.
func NewVehicleMultipliers(m map[string]float64) VehicleMultipliers {
	out := make(VehicleMultipliers, len(m))
	for k, v := range m {
		out[normalizeClass(k)] = v
	}
	return out
}
