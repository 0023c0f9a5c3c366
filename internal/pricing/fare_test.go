package pricing

import (
	"errors"
	"math"
	"testing"
	"time"

	"tripmeter/internal/domain"
)

var regular = domain.FareProfile{VehicleClass: "regular", BaseFare: 1000, PerKmRate: 150, MinimumFare: 500}

func TestEstimateFare(t *testing.T) {
	tests := []struct {
		name        string
		distanceKm  float64
		profile     domain.FareProfile
		multipliers domain.Multipliers
		wantFare    domain.Money
	}{
		{
			name:       "zero distance returns base fare above minimum",
			distanceKm: 0,
			profile:    regular,
			wantFare:   1000,
		},
		{
			name:       "zero distance returns minimum when base is below it",
			distanceKm: 0,
			profile:    domain.FareProfile{BaseFare: 300, PerKmRate: 150, MinimumFare: 500},
			wantFare:   500,
		},
		{
			name:       "2km regular (1000 + 2*150)",
			distanceKm: 2,
			profile:    regular,
			wantFare:   1300,
		},
		{
			name:        "all multipliers applied",
			distanceKm:  2,
			profile:     regular,
			multipliers: domain.Multipliers{Time: 1.2, Vehicle: 1.5, Demand: 2},
			// 1300 * 3.6 = 4680
			wantFare: 4680,
		},
		{
			name:        "unset multipliers default to one",
			distanceKm:  2,
			profile:     regular,
			multipliers: domain.Multipliers{Demand: 1.5},
			wantFare:    1950,
		},
		{
			name:       "rounds half up",
			distanceKm: 0.01,
			profile:    domain.FareProfile{BaseFare: 0, PerKmRate: 50},
			// 0.5 -> 1
			wantFare: 1,
		},
		{
			name:       "rounds down below half",
			distanceKm: 0.0049,
			profile:    domain.FareProfile{BaseFare: 0, PerKmRate: 100},
			// 0.49 -> 0
			wantFare: 0,
		},
		{
			name:        "minimum applies after multipliers",
			distanceKm:  0,
			profile:     domain.FareProfile{BaseFare: 400, MinimumFare: 500},
			multipliers: domain.Multipliers{Time: 1.2},
			wantFare:    500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimateFare(tt.distanceKm, tt.profile, tt.multipliers)
			if err != nil {
				t.Fatalf("EstimateFare() error = %v", err)
			}
			if got != tt.wantFare {
				t.Errorf("EstimateFare() = %d, want %d", got, tt.wantFare)
			}
		})
	}
}

func TestEstimateFare_ZeroDistanceIsMaxOfMinimumAndBase(t *testing.T) {
	profiles := []domain.FareProfile{
		{BaseFare: 1000, PerKmRate: 150, MinimumFare: 500},
		{BaseFare: 100, PerKmRate: 150, MinimumFare: 500},
		{BaseFare: 500, PerKmRate: 0, MinimumFare: 500},
	}
	for _, p := range profiles {
		got, err := EstimateFare(0, p, domain.Multipliers{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := p.BaseFare
		if p.MinimumFare > want {
			want = p.MinimumFare
		}
		if got != want {
			t.Errorf("EstimateFare(0, %+v) = %d, want %d", p, got, want)
		}
	}
}

func TestEstimateFare_MonotonicInDistance(t *testing.T) {
	m := domain.Multipliers{Time: 1.3, Vehicle: 1.1, Demand: 1.25}
	prev := domain.Money(-1)
	for d := 0.0; d <= 50; d += 0.037 {
		got, err := EstimateFare(d, regular, m)
		if err != nil {
			t.Fatalf("unexpected error at %f: %v", d, err)
		}
		if got < prev {
			t.Fatalf("fare decreased at %f km: %d < %d", d, got, prev)
		}
		prev = got
	}
}

func TestEstimateFare_InvalidArgument(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		profile    domain.FareProfile
		m          domain.Multipliers
	}{
		{name: "negative distance", distanceKm: -0.1, profile: regular},
		{name: "NaN distance", distanceKm: math.NaN(), profile: regular},
		{name: "infinite distance", distanceKm: math.Inf(1), profile: regular},
		{name: "negative per km rate", distanceKm: 1, profile: domain.FareProfile{PerKmRate: -1}},
		{name: "negative minimum", distanceKm: 1, profile: domain.FareProfile{MinimumFare: -1}},
		{name: "negative multiplier", distanceKm: 1, profile: regular, m: domain.Multipliers{Demand: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateFare(tt.distanceKm, tt.profile, tt.m)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("EstimateFare() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c, err := NewCatalog([]domain.FareProfile{regular})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	p, provisional := c.Lookup("Regular ")
	if provisional || p != regular {
		t.Errorf("Lookup(regular) = %+v, %v; want %+v, false", p, provisional, regular)
	}

	p, provisional = c.Lookup("helicopter")
	if !provisional || p != FallbackFareProfile {
		t.Errorf("Lookup(unknown) = %+v, %v; want fallback, true", p, provisional)
	}
}

func TestCatalog_EmptyFailsClosedToFallback(t *testing.T) {
	c, err := NewCatalog(nil)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	p, provisional := c.Lookup("regular")
	if !provisional {
		t.Error("expected provisional pricing from an empty catalog")
	}
	if p.PerKmRate == 0 || p.BaseFare == 0 {
		t.Errorf("fallback profile must not use zero rates: %+v", p)
	}

	var nilCatalog *Catalog
	if _, provisional := nilCatalog.Lookup("regular"); !provisional {
		t.Error("expected provisional pricing from a nil catalog")
	}
}

func TestNewCatalog_RejectsInvalidProfiles(t *testing.T) {
	if _, err := NewCatalog([]domain.FareProfile{{BaseFare: 1}}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for missing class, got %v", err)
	}
	if _, err := NewCatalog([]domain.FareProfile{{VehicleClass: "x", PerKmRate: -5}}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for negative rate, got %v", err)
	}
}

func TestTimeRules_Multiplier(t *testing.T) {
	rules := DefaultTimeRules()
	day := func(hour, minute int) time.Time {
		return time.Date(2026, 2, 10, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{name: "off-peak noon", at: day(12, 0), want: 1},
		{name: "morning peak", at: day(8, 0), want: 1.2},
		{name: "peak ends at 10", at: day(10, 0), want: 1},
		{name: "evening peak", at: day(18, 59), want: 1.2},
		{name: "night", at: day(23, 30), want: 1.3},
		{name: "early morning night", at: day(4, 59), want: 1.3},
		{name: "after night", at: day(5, 0), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.Multiplier(tt.at); got != tt.want {
				t.Errorf("Multiplier(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestVehicleMultipliers_For(t *testing.T) {
	v := NewVehicleMultipliers(map[string]float64{"Comfort": 1.25, "broken": -2})
	if got := v.For("comfort"); got != 1.25 {
		t.Errorf("For(comfort) = %v, want 1.25", got)
	}
	if got := v.For("regular"); got != 1 {
		t.Errorf("For(regular) = %v, want 1", got)
	}
	if got := v.For("broken"); got != 1 {
		t.Errorf("For(broken) = %v, want 1", got)
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(1305, 0.10); got != 131 {
		t.Errorf("Percentage(1305, 0.10) = %d, want 131", got)
	}
	if got := Percentage(1300, 0.10); got != 130 {
		t.Errorf("Percentage(1300, 0.10) = %d, want 130", got)
	}
}
