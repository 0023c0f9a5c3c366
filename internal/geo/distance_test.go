package geo

import (
	"errors"
	"math"
	"testing"

	"tripmeter/internal/domain"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a         domain.GeoPoint
		b         domain.GeoPoint
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         domain.GeoPoint{Lat: 33.5138, Lng: 36.2765},
			b:         domain.GeoPoint{Lat: 33.5138, Lng: 36.2765},
			wantKm:    0,
			tolerance: 0,
		},
		{
			name:      "Damascus center to 0.1 degree north (~11.1km)",
			a:         domain.GeoPoint{Lat: 33.5138, Lng: 36.2765},
			b:         domain.GeoPoint{Lat: 33.6138, Lng: 36.2765},
			wantKm:    11.1,
			tolerance: 0.5,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         domain.GeoPoint{Lat: 40.7128, Lng: -74.0060},
			b:         domain.GeoPoint{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
		{
			name:      "antipodal points",
			a:         domain.GeoPoint{Lat: 0, Lng: 0},
			b:         domain.GeoPoint{Lat: 0, Lng: 180},
			wantKm:    math.Pi * EarthRadiusKm,
			tolerance: 0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DistanceKm(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	pairs := [][2]domain.GeoPoint{
		{{Lat: 25.0, Lng: 121.0}, {Lat: 26.0, Lng: 122.0}},
		{{Lat: 33.50, Lng: 36.30}, {Lat: 33.52, Lng: 36.28}},
		{{Lat: -45.1, Lng: 170.2}, {Lat: 60.3, Lng: -10.9}},
	}

	for _, p := range pairs {
		d1, err := DistanceKm(p[0], p[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d2, err := DistanceKm(p[1], p[0])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(d1-d2) > 1e-9 {
			t.Errorf("distance is not symmetric: %f vs %f", d1, d2)
		}
	}
}

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	points := []domain.GeoPoint{
		{Lat: 0, Lng: 0},
		{Lat: 90, Lng: 180},
		{Lat: -90, Lng: -180},
		{Lat: 33.5138, Lng: 36.2765},
	}
	for _, p := range points {
		d, err := DistanceKm(p, p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistanceKm_InvalidInput(t *testing.T) {
	valid := domain.GeoPoint{Lat: 33.5, Lng: 36.3}
	invalid := []domain.GeoPoint{
		{Lat: math.NaN(), Lng: 36.3},
		{Lat: 33.5, Lng: math.NaN()},
		{Lat: 91, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 181},
		{Lat: 0, Lng: math.Inf(1)},
	}

	for _, p := range invalid {
		if _, err := DistanceKm(valid, p); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("DistanceKm(valid, %v) error = %v, want ErrInvalidArgument", p, err)
		}
		if _, err := DistanceKm(p, valid); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("DistanceKm(%v, valid) error = %v, want ErrInvalidArgument", p, err)
		}
	}
}

func TestPathLengthKm(t *testing.T) {
	a := domain.GeoPoint{Lat: 33.50, Lng: 36.30}
	b := domain.GeoPoint{Lat: 33.51, Lng: 36.30}
	c := domain.GeoPoint{Lat: 33.52, Lng: 36.30}

	ab, _ := DistanceKm(a, b)
	bc, _ := DistanceKm(b, c)

	got, err := PathLengthKm([]domain.GeoPoint{a, b, c})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-(ab+bc)) > 1e-9 {
		t.Errorf("PathLengthKm() = %f, want %f", got, ab+bc)
	}

	if got, _ := PathLengthKm(nil); got != 0 {
		t.Errorf("PathLengthKm(nil) = %f, want 0", got)
	}
}

func TestPairKey_RoundsToSixDecimals(t *testing.T) {
	from := domain.GeoPoint{Lat: 33.5138001, Lng: 36.2765004}
	to := domain.GeoPoint{Lat: 33.6138, Lng: 36.2765}

	same := domain.GeoPoint{Lat: 33.5137999, Lng: 36.2764996}
	if PairKey(from, to) != PairKey(same, to) {
		t.Errorf("expected keys to match after rounding: %s vs %s", PairKey(from, to), PairKey(same, to))
	}

	moved := domain.GeoPoint{Lat: 33.513810, Lng: 36.2765}
	if PairKey(from, to) == PairKey(moved, to) {
		t.Errorf("expected different keys for a 1e-5 degree move")
	}

	if PairKey(from, to) == PairKey(to, from) {
		t.Errorf("expected direction to matter")
	}
}
