package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tripmeter/internal/domain"
	"tripmeter/internal/pricing"
	"tripmeter/internal/service"
)

// FareHandler handles HTTP requests for fare quotes and routes.
type FareHandler struct {
	fareService *service.FareService
	resolver    *service.RouteResolver
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(fareService *service.FareService, resolver *service.RouteResolver) *FareHandler {
	return &FareHandler{fareService: fareService, resolver: resolver}
}

// EstimateFareRequest is the HTTP request body for a fare estimate.
type EstimateFareRequest struct {
	From         domain.GeoPoint `json:"from"`
	To           domain.GeoPoint `json:"to"`
	VehicleClass string          `json:"vehicle_class"`
	PickupAt     *time.Time      `json:"pickup_at,omitempty"`
}

// Estimate handles POST /v1/fares/estimate
func (h *FareHandler) Estimate(c *gin.Context) {
	var req EstimateFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	quoteReq := service.QuoteRequest{
		From:         req.From,
		To:           req.To,
		VehicleClass: req.VehicleClass,
	}
	if req.PickupAt != nil {
		quoteReq.At = *req.PickupAt
	}

	quote, err := h.fareService.Quote(c.Request.Context(), quoteReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, quote)
}

// Profiles handles GET /v1/fares/profiles
func (h *FareHandler) Profiles(c *gin.Context) {
	respondJSON(c, http.StatusOK, gin.H{
		"profiles": h.fareService.Profiles(),
		"fallback": pricing.FallbackFareProfile,
	})
}

// RouteResponse is the HTTP response for a route query.
type RouteResponse struct {
	domain.RouteEstimate
	Provisional *domain.RouteEstimate `json:"provisional,omitempty"`
}

// Route handles GET /v1/routes?from_lat=&from_lng=&to_lat=&to_lng=
func (h *FareHandler) Route(c *gin.Context) {
	from, ok := queryPoint(c, "from")
	if !ok {
		return
	}
	to, ok := queryPoint(c, "to")
	if !ok {
		return
	}

	provisional, err := h.resolver.Provisional(from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	est, err := h.resolver.Resolve(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := RouteResponse{RouteEstimate: est}
	if est.Source != domain.RouteSourceStraightLine {
		resp.Provisional = &provisional
	}
	respondJSON(c, http.StatusOK, resp)
}

func queryPoint(c *gin.Context, prefix string) (domain.GeoPoint, bool) {
	lat, errLat := strconv.ParseFloat(c.Query(prefix+"_lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query(prefix+"_lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: prefix + "_lat and " + prefix + "_lng must be numbers"})
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: lat, Lng: lng}, true
}
