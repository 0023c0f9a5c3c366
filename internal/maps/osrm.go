package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"tripmeter/internal/domain"
)

// OSRMClient queries an OSRM-compatible HTTP routing service.
type OSRMClient struct {
	baseURL string
	profile string
	client  *http.Client
}

// NewOSRMClient creates a client for baseURL, e.g. https://router.project-osrm.org.
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving",
		client:  &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

// Route implements Router.
func (c *OSRMClient) Route(ctx context.Context, from, to domain.GeoPoint) (*Path, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=polyline",
		c.baseURL, c.profile, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building osrm request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("osrm returned status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding osrm response: %w", err)
	}
	if body.Code != "Ok" {
		return nil, fmt.Errorf("osrm code %q: %s: %w", body.Code, body.Message, ErrNoRoute)
	}
	if len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	route := body.Routes[0]
	coords, _, err := polyline.DecodeCoords([]byte(route.Geometry))
	if err != nil {
		return nil, fmt.Errorf("decoding osrm geometry: %w", err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("osrm geometry has %d points: %w", len(coords), ErrNoRoute)
	}

	points := make([]domain.GeoPoint, 0, len(coords))
	for _, c := range coords {
		points = append(points, domain.GeoPoint{Lat: c[0], Lng: c[1]})
	}

	return &Path{Points: points, DistanceMeters: route.Distance}, nil
}
