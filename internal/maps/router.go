// Package maps talks to external road-routing and place-search services.
package maps

import (
	"context"
	"errors"

	"tripmeter/internal/domain"
)

// ErrNoRoute is returned when the routing service answers without a usable route.
var ErrNoRoute = errors.New("no route found")

// Path is a road-network route as reported by a routing service.
type Path struct {
	Points         []domain.GeoPoint
	DistanceMeters float64
}

// Router resolves a driving route between two points.
type Router interface {
	Route(ctx context.Context, from, to domain.GeoPoint) (*Path, error)
}
