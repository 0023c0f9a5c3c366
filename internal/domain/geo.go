package domain

import (
	"math"
	"time"
)

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is finite and inside the lat/lng ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// TimedPoint is a GeoPoint observed at a given instant.
type TimedPoint struct {
	GeoPoint
	TimestampMs int64 `json:"timestamp_ms"`
}

// Time returns the observation instant.
func (p TimedPoint) Time() time.Time {
	return time.UnixMilli(p.TimestampMs)
}
