package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"tripmeter/internal/domain"
)

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Route implements Router using driving directions.
func (s *RouteService) Route(ctx context.Context, from, to domain.GeoPoint) (*Path, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLngString(from),
		Destination: latLngString(to),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	var meters int
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
	}

	decoded, err := routes[0].OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding overview polyline: %w", err)
	}
	if len(decoded) < 2 {
		return nil, ErrNoRoute
	}

	points := make([]domain.GeoPoint, 0, len(decoded))
	for _, ll := range decoded {
		points = append(points, domain.GeoPoint{Lat: ll.Lat, Lng: ll.Lng})
	}

	return &Path{Points: points, DistanceMeters: float64(meters)}, nil
}

func latLngString(p domain.GeoPoint) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
