package domain

// Money is an amount in the currency's smallest unit.
type Money int64

// FareProfile is the pricing configuration of one vehicle class.
type FareProfile struct {
	VehicleClass string `json:"vehicle_class"`
	BaseFare     Money  `json:"base_fare"`
	PerKmRate    Money  `json:"per_km_rate"`
	MinimumFare  Money  `json:"minimum_fare"`
}

// Valid reports whether every rate is non-negative.
func (p FareProfile) Valid() bool {
	return p.BaseFare >= 0 && p.PerKmRate >= 0 && p.MinimumFare >= 0
}

// Multipliers scale the distance-based fare. A zero field means "not set"
// and is treated as 1.0.
type Multipliers struct {
	Time    float64 `json:"time"`
	Vehicle float64 `json:"vehicle"`
	Demand  float64 `json:"demand"`
}

// DefaultMultipliers returns the neutral multipliers.
func DefaultMultipliers() Multipliers {
	return Multipliers{Time: 1, Vehicle: 1, Demand: 1}
}

// Normalized replaces unset fields with 1.0.
func (m Multipliers) Normalized() Multipliers {
	if m.Time == 0 {
		m.Time = 1
	}
	if m.Vehicle == 0 {
		m.Vehicle = 1
	}
	if m.Demand == 0 {
		m.Demand = 1
	}
	return m
}

// Product returns Time × Vehicle × Demand after normalization.
func (m Multipliers) Product() float64 {
	n := m.Normalized()
	return n.Time * n.Vehicle * n.Demand
}
