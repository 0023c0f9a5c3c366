package tests

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/geo"
	"tripmeter/internal/maps"
	"tripmeter/internal/service"
)

var (
	monasPoint   = domain.GeoPoint{Lat: -6.175392, Lng: 106.827153}
	blokMPoint   = domain.GeoPoint{Lat: -6.244211, Lng: 106.800476}
	kemangPoint  = domain.GeoPoint{Lat: -6.260697, Lng: 106.814262}
	invalidPoint = domain.GeoPoint{Lat: 91, Lng: 0}
)

func newResolver(router maps.Router, timeout time.Duration) *service.RouteResolver {
	return service.NewRouteResolver(router, service.NewMemoryRouteCache(service.DefaultDebounceWindow), timeout, DiscardLogger())
}

// ──────────────────────────────────────────────
// 1. ROUTE RESOLUTION
// ──────────────────────────────────────────────

func TestRouteResolver_NetworkRoute(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 9_850}
	resolver := newResolver(router, time.Second)

	est, err := resolver.Resolve(context.Background(), monasPoint, blokMPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != domain.RouteSourceNetwork {
		t.Errorf("expected network source, got %s", est.Source)
	}
	if est.DistanceKm != 9.85 {
		t.Errorf("expected 9.85 km, got %v", est.DistanceKm)
	}
	if est.Advisory != "" {
		t.Errorf("expected no advisory, got %q", est.Advisory)
	}
}

func TestRouteResolver_UnreachableFallsBackToStraightLine(t *testing.T) {
	t.Parallel()

	router := &MockRouter{Error: ErrMockUnreachable}
	resolver := newResolver(router, time.Second)

	est, err := resolver.Resolve(context.Background(), monasPoint, blokMPoint)
	if err != nil {
		t.Fatalf("routing failure must not surface as error, got %v", err)
	}

	want, _ := geo.DistanceKm(monasPoint, blokMPoint)
	if est.Source != domain.RouteSourceStraightLine {
		t.Errorf("expected straight-line source, got %s", est.Source)
	}
	if math.Abs(est.DistanceKm-want) > 1e-9 {
		t.Errorf("expected %v km, got %v", want, est.DistanceKm)
	}
	if len(est.Points) != 2 || est.Points[0] != monasPoint || est.Points[1] != blokMPoint {
		t.Errorf("expected endpoints as points, got %v", est.Points)
	}
	if est.Advisory == "" {
		t.Error("expected an advisory for the degraded route")
	}
}

func TestRouteResolver_DegradedResponses(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		router *MockRouter
	}{
		{
			name:   "no route",
			router: &MockRouter{Error: maps.ErrNoRoute},
		},
		{
			name:   "single point geometry",
			router: &MockRouter{Path: &maps.Path{Points: []domain.GeoPoint{monasPoint}, DistanceMeters: 10}},
		},
		{
			name: "point out of range",
			router: &MockRouter{Path: &maps.Path{
				Points:         []domain.GeoPoint{monasPoint, {Lat: 200, Lng: 0}},
				DistanceMeters: 10,
			}},
		},
		{
			name:   "negative distance",
			router: &MockRouter{Path: &maps.Path{Points: []domain.GeoPoint{monasPoint, blokMPoint}, DistanceMeters: -1}},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			est, err := newResolver(tc.router, time.Second).Resolve(context.Background(), monasPoint, blokMPoint)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if est.Source != domain.RouteSourceStraightLine {
				t.Errorf("expected straight-line fallback, got %s", est.Source)
			}
		})
	}
}

func TestRouteResolver_TimeoutFallsBack(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 1_000, Delay: 2 * time.Second}
	resolver := newResolver(router, 50*time.Millisecond)

	start := time.Now()
	est, err := resolver.Resolve(context.Background(), monasPoint, blokMPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("resolve took %v, expected the timeout to cut it short", elapsed)
	}
	if est.Source != domain.RouteSourceStraightLine {
		t.Errorf("expected straight-line after timeout, got %s", est.Source)
	}
}

func TestRouteResolver_NoRouterIsStraightLine(t *testing.T) {
	t.Parallel()

	est, err := newResolver(nil, time.Second).Resolve(context.Background(), monasPoint, blokMPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != domain.RouteSourceStraightLine || est.Advisory == "" {
		t.Errorf("expected advised straight-line estimate, got %+v", est)
	}
}

func TestRouteResolver_InvalidCoordinates(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 1_000}
	resolver := newResolver(router, time.Second)

	_, err := resolver.Resolve(context.Background(), invalidPoint, blokMPoint)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if router.Calls() != 0 {
		t.Errorf("invalid input must not reach the network, got %d calls", router.Calls())
	}
}

func TestRouteResolver_ProvisionalDoesNoIO(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 1_000}
	resolver := newResolver(router, time.Second)

	est, err := resolver.Provisional(monasPoint, kemangPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != domain.RouteSourceStraightLine || est.Advisory != "" {
		t.Errorf("unexpected provisional estimate %+v", est)
	}
	if router.Calls() != 0 {
		t.Errorf("expected no network calls, got %d", router.Calls())
	}
}

// ──────────────────────────────────────────────
// 2. CACHING AND DEDUPLICATION
// ──────────────────────────────────────────────

func TestRouteResolver_RepeatedCallIsCached(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 9_850}
	resolver := newResolver(router, time.Second)

	first, err := resolver.Resolve(context.Background(), monasPoint, blokMPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), monasPoint, blokMPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if router.Calls() != 1 {
		t.Errorf("expected 1 network call, got %d", router.Calls())
	}
	if first.DistanceKm != second.DistanceKm || first.Source != second.Source {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestRouteResolver_ConcurrentCallsShareOneRequest(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 9_850, Release: make(chan struct{})}
	resolver := newResolver(router, 5*time.Second)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]domain.RouteEstimate, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = resolver.Resolve(context.Background(), monasPoint, blokMPoint)
		}(i)
	}

	// Let every caller join the in-flight request before answering it.
	deadline := time.Now().Add(time.Second)
	for router.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(router.Release)
	wg.Wait()

	if router.Calls() != 1 {
		t.Errorf("expected 1 outbound request, got %d", router.Calls())
	}
	for i, r := range results {
		if r.Source != domain.RouteSourceNetwork {
			t.Errorf("caller %d got %s", i, r.Source)
		}
	}
}

func TestRouteResolver_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	t.Parallel()

	router := &MockRouter{DistanceMeters: 4_000, Delay: 20 * time.Millisecond}
	resolver := newResolver(router, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est, err := resolver.Resolve(ctx, monasPoint, blokMPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != domain.RouteSourceNetwork {
		t.Errorf("expected network route, got %s", est.Source)
	}
}

func TestMemoryRouteCache_Expires(t *testing.T) {
	t.Parallel()

	cache := service.NewMemoryRouteCache(20 * time.Millisecond)
	ctx := context.Background()
	est := domain.RouteEstimate{DistanceKm: 3, Source: domain.RouteSourceNetwork}

	if err := cache.Set(ctx, "k", est); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Fatal("expected a hit right after Set")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("expected the entry to expire")
	}
}
