package service

import (
	"context"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/geo"
	"tripmeter/internal/pricing"
)

// DemandSource reports the demand multiplier around a point.
type DemandSource interface {
	GetMultiplier(ctx context.Context, lat, lng float64) float64
}

// FareService quotes fares from the configured catalog and pricing factors.
type FareService struct {
	catalog   *pricing.Catalog
	timeRules pricing.TimeRules
	vehicles  pricing.VehicleMultipliers
	demand    DemandSource
	resolver  *RouteResolver
	now       func() time.Time
}

// NewFareService creates a new FareService. demand may be nil.
func NewFareService(
	catalog *pricing.Catalog,
	timeRules pricing.TimeRules,
	vehicles pricing.VehicleMultipliers,
	demand DemandSource,
	resolver *RouteResolver,
) *FareService {
	return &FareService{
		catalog:   catalog,
		timeRules: timeRules,
		vehicles:  vehicles,
		demand:    demand,
		resolver:  resolver,
		now:       time.Now,
	}
}

// QuoteRequest contains the parameters for a fare quote.
type QuoteRequest struct {
	From         domain.GeoPoint
	To           domain.GeoPoint
	VehicleClass string
	// At is the pickup time; zero means now.
	At time.Time
}

// Quote is a priced route.
type Quote struct {
	Route       domain.RouteEstimate `json:"route"`
	Profile     domain.FareProfile   `json:"profile"`
	Multipliers domain.Multipliers   `json:"multipliers"`
	Amount      domain.Money         `json:"amount"`
	// Provisional is set when the vehicle class is unknown and the fallback
	// profile was used.
	Provisional bool `json:"provisional"`
}

// Profile returns the fare profile of vehicleClass and whether it is the fallback.
func (s *FareService) Profile(vehicleClass string) (domain.FareProfile, bool) {
	return s.catalog.Lookup(vehicleClass)
}

// Profiles returns the configured fare profiles.
func (s *FareService) Profiles() []domain.FareProfile {
	return s.catalog.Profiles()
}

// Multipliers returns the pricing factors for a trip of vehicleClass
// starting at pickup at time at.
func (s *FareService) Multipliers(ctx context.Context, vehicleClass string, at time.Time, pickup domain.GeoPoint) domain.Multipliers {
	if at.IsZero() {
		at = s.now()
	}
	m := domain.Multipliers{
		Time:    s.timeRules.Multiplier(at),
		Vehicle: s.vehicles.For(vehicleClass),
		Demand:  1.0,
	}
	if s.demand != nil {
		m.Demand = s.demand.GetMultiplier(ctx, pickup.Lat, pickup.Lng)
	}
	return m.Normalized()
}

// Quote resolves the route between the endpoints and prices it.
func (s *FareService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := geo.Validate(req.From); err != nil {
		return nil, err
	}
	if err := geo.Validate(req.To); err != nil {
		return nil, err
	}

	route, err := s.resolver.Resolve(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}

	profile, provisional := s.Profile(req.VehicleClass)
	m := s.Multipliers(ctx, req.VehicleClass, req.At, req.From)

	amount, err := pricing.EstimateFare(route.DistanceKm, profile, m)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Route:       route,
		Profile:     profile,
		Multipliers: m,
		Amount:      amount,
		Provisional: provisional,
	}, nil
}
