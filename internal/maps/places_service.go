package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"tripmeter/internal/domain"
)

// Place represents a simplified autocomplete result.
type Place struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
	MainText    string `json:"main_text"`
}

// PlacesService handles interactions with the Google Places API.
type PlacesService struct {
	client   *maps.Client
	radiusM  uint
	language string
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey, language string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client, radiusM: 30000, language: language}, nil
}

// Autocomplete returns place predictions for a partial query, biased towards
// near when it is set.
func (s *PlacesService) Autocomplete(ctx context.Context, query string, near *domain.GeoPoint) ([]Place, error) {
	r := &maps.PlaceAutocompleteRequest{
		Input:    query,
		Language: s.language,
	}
	if near != nil {
		r.Location = &maps.LatLng{Lat: near.Lat, Lng: near.Lng}
		r.Radius = s.radiusM
	}

	resp, err := s.client.PlaceAutocomplete(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	results := make([]Place, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		results = append(results, Place{
			PlaceID:     p.PlaceID,
			Description: p.Description,
			MainText:    p.StructuredFormatting.MainText,
		})
	}
	return results, nil
}
