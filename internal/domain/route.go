package domain

// RouteSource tells where a RouteEstimate's distance came from.
type RouteSource string

const (
	RouteSourceNetwork      RouteSource = "network"
	RouteSourceStraightLine RouteSource = "straight-line"
)

// RouteEstimate is an estimated path between two endpoints.
type RouteEstimate struct {
	Points     []GeoPoint  `json:"points"`
	DistanceKm float64     `json:"distance_km"`
	Source     RouteSource `json:"source"`
	// Advisory is set when the road network could not be used.
	Advisory string `json:"advisory,omitempty"`
}
