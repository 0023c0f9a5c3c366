package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/pricing"
	"tripmeter/internal/redis"
	"tripmeter/internal/service"
)

var standardProfile = domain.FareProfile{VehicleClass: "standard", BaseFare: 1000, PerKmRate: 200, MinimumFare: 1500}

var (
	middayUTC = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	peakUTC   = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
	nightUTC  = time.Date(2024, 5, 6, 23, 30, 0, 0, time.UTC)
)

func newFareService(t *testing.T, router *MockRouter, demand service.DemandSource) *service.FareService {
	t.Helper()
	catalog, err := pricing.NewCatalog([]domain.FareProfile{
		standardProfile,
		{VehicleClass: "premium", BaseFare: 2000, PerKmRate: 400, MinimumFare: 3000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return service.NewFareService(
		catalog,
		pricing.DefaultTimeRules(),
		pricing.NewVehicleMultipliers(map[string]float64{"premium": 1.5}),
		demand,
		newResolver(router, time.Second),
	)
}

func TestFareQuote_Multipliers(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		class       string
		at          time.Time
		wantAmount  domain.Money
		provisional bool
	}{
		{
			// 1000 + 10×200
			name:       "standard midday",
			class:      "standard",
			at:         middayUTC,
			wantAmount: 3000,
		},
		{
			name:       "standard peak",
			class:      "standard",
			at:         peakUTC,
			wantAmount: 3600,
		},
		{
			name:       "standard night",
			class:      "standard",
			at:         nightUTC,
			wantAmount: 3900,
		},
		{
			// (2000 + 10×400) × 1.5
			name:       "premium midday",
			class:      "Premium",
			at:         middayUTC,
			wantAmount: 9000,
		},
		{
			name:        "unknown class uses fallback",
			class:       "hovercraft",
			at:          middayUTC,
			wantAmount:  3000,
			provisional: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fares := newFareService(t, &MockRouter{DistanceMeters: 10_000}, nil)
			quote, err := fares.Quote(context.Background(), service.QuoteRequest{
				From:         monasPoint,
				To:           blokMPoint,
				VehicleClass: tc.class,
				At:           tc.at,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if quote.Amount != tc.wantAmount {
				t.Errorf("expected %d, got %d", tc.wantAmount, quote.Amount)
			}
			if quote.Provisional != tc.provisional {
				t.Errorf("expected provisional=%v, got %v", tc.provisional, quote.Provisional)
			}
			if quote.Route.Source != domain.RouteSourceNetwork {
				t.Errorf("expected network route, got %s", quote.Route.Source)
			}
		})
	}
}

func TestFareQuote_FallbackProfileValues(t *testing.T) {
	t.Parallel()

	fares := newFareService(t, &MockRouter{DistanceMeters: 500}, nil)
	quote, err := fares.Quote(context.Background(), service.QuoteRequest{
		From: monasPoint, To: blokMPoint, VehicleClass: "", At: middayUTC,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.Profile != pricing.FallbackFareProfile {
		t.Errorf("expected fallback profile, got %+v", quote.Profile)
	}
	// 1000 + 0.5×200 = 1100, lifted to the 1500 minimum.
	if quote.Amount != 1500 {
		t.Errorf("expected minimum fare 1500, got %d", quote.Amount)
	}
}

func TestFareQuote_DegradedRouteStillPriced(t *testing.T) {
	t.Parallel()

	fares := newFareService(t, &MockRouter{Error: ErrMockUnreachable}, nil)
	quote, err := fares.Quote(context.Background(), service.QuoteRequest{
		From: monasPoint, To: blokMPoint, VehicleClass: "standard", At: middayUTC,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.Route.Source != domain.RouteSourceStraightLine {
		t.Errorf("expected straight-line route, got %s", quote.Route.Source)
	}
	if quote.Route.Advisory == "" {
		t.Error("expected the advisory to travel with the quote")
	}
	want, _ := pricing.EstimateFare(quote.Route.DistanceKm, standardProfile, domain.DefaultMultipliers())
	if quote.Amount != want {
		t.Errorf("expected %d, got %d", want, quote.Amount)
	}
}

func TestFareQuote_DemandFromSurge(t *testing.T) {
	t.Parallel()

	store := NewMockLocationStore()
	store.SetActiveTrips(3)
	surge := service.NewSurgeService(store, service.DefaultSurgeConfig(), DiscardLogger())

	fares := newFareService(t, &MockRouter{DistanceMeters: 10_000}, surge)
	quote, err := fares.Quote(context.Background(), service.QuoteRequest{
		From: monasPoint, To: blokMPoint, VehicleClass: "standard", At: middayUTC,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.Multipliers.Demand != 2.0 {
		t.Errorf("expected demand 2.0 with no drivers nearby, got %v", quote.Multipliers.Demand)
	}
	if quote.Amount != 6000 {
		t.Errorf("expected 6000, got %d", quote.Amount)
	}
}

func TestFareQuote_InvalidEndpoints(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 1_000}
	fares := newFareService(t, router, nil)

	_, err := fares.Quote(context.Background(), service.QuoteRequest{From: monasPoint, To: invalidPoint})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if router.Calls() != 0 {
		t.Errorf("expected no routing call, got %d", router.Calls())
	}
}

// ──────────────────────────────────────────────
// SURGE TIERS
// ──────────────────────────────────────────────

func TestSurgeMultiplier_Tiers(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		supply int
		demand int
		want   float64
	}{
		{name: "no supply no demand", supply: 0, demand: 0, want: 1.0},
		{name: "no supply with demand", supply: 0, demand: 2, want: 2.0},
		{name: "balanced", supply: 10, demand: 10, want: 1.0},
		{name: "low surge", supply: 10, demand: 12, want: 1.25},
		{name: "medium surge", supply: 10, demand: 15, want: 1.5},
		{name: "high surge", supply: 5, demand: 10, want: 2.0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := NewMockLocationStore()
			drivers := make([]redis.DriverLocation, tc.supply)
			for i := range drivers {
				drivers[i] = redis.DriverLocation{DriverID: string(rune('A' + i))}
			}
			store.SetLocations(drivers)
			store.SetActiveTrips(tc.demand)

			surge := service.NewSurgeService(store, service.DefaultSurgeConfig(), DiscardLogger())
			if got := surge.GetMultiplier(context.Background(), monasPoint.Lat, monasPoint.Lng); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSurgeMultiplier_StoreErrorsFailOpen(t *testing.T) {
	t.Parallel()

	store := NewMockLocationStore()
	store.SetActiveTrips(5)
	store.FindNearbyDriversError = ErrMockTimeout

	surge := service.NewSurgeService(store, service.DefaultSurgeConfig(), DiscardLogger())
	if got := surge.GetMultiplier(context.Background(), 0, 0); got != 1.0 {
		t.Errorf("expected 1.0 on store error, got %v", got)
	}
}
