package domain

import "time"

// TrackedTrip is the live state of one trip while it is being tracked.
type TrackedTrip struct {
	TripID          string       `json:"trip_id"`
	VehicleClass    string       `json:"vehicle_class"`
	StartPosition   TimedPoint   `json:"start_position"`
	Path            []TimedPoint `json:"path"`
	TotalDistanceKm float64      `json:"total_distance_km"`
	CurrentSpeedKmh float64      `json:"current_speed_kmh"`
	AverageSpeedKmh float64      `json:"average_speed_kmh"`
	TotalFare       Money        `json:"total_fare"`
	// ProvisionalFare is set when the vehicle class had no configured profile
	// and the fallback profile priced the trip.
	ProvisionalFare bool      `json:"provisional_fare"`
	StartedAt       time.Time `json:"started_at"`
	StoppedAt       time.Time `json:"stopped_at,omitempty"`
	IsTracking      bool      `json:"is_tracking"`
	// PlannedDistanceKm is the resolved route distance at start, if any.
	PlannedDistanceKm float64 `json:"planned_distance_km,omitempty"`
}

// Clone returns a deep copy safe to hand out of the tracker.
func (t TrackedTrip) Clone() TrackedTrip {
	c := t
	c.Path = append([]TimedPoint(nil), t.Path...)
	return c
}

// LastPosition returns the most recent recorded point.
func (t TrackedTrip) LastPosition() TimedPoint {
	if len(t.Path) == 0 {
		return t.StartPosition
	}
	return t.Path[len(t.Path)-1]
}

// TripSnapshot is the periodic progress record handed to persistence.
type TripSnapshot struct {
	TripID     string
	DistanceKm float64
	Fare       Money
	Position   GeoPoint
	Final      bool
	RecordedAt time.Time
}

// TripSummary is sent once when a tracked trip completes.
type TripSummary struct {
	TripID          string  `json:"trip_id"`
	DistanceKm      float64 `json:"distance_km"`
	Fare            Money   `json:"fare"`
	DurationSeconds int64   `json:"duration_seconds"`
}

// Receipt represents a trip receipt.
type Receipt struct {
	ID              string
	TripID          string
	VehicleClass    string
	Start           GeoPoint
	End             GeoPoint
	DistanceKm      float64
	Duration        time.Duration
	TotalFare       Money
	Commission      Money
	DriverEarnings  Money
	ProvisionalFare bool
	StartedAt       time.Time
	EndedAt         time.Time
	CreatedAt       time.Time
}
