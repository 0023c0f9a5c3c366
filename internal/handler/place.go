package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripmeter/internal/domain"
	"tripmeter/internal/service"
)

const sessionHeader = "X-Session-ID"

// PlaceHandler handles search-as-you-type place lookups.
type PlaceHandler struct {
	searchService *service.SearchService
}

// NewPlaceHandler creates a new PlaceHandler.
func NewPlaceHandler(searchService *service.SearchService) *PlaceHandler {
	return &PlaceHandler{searchService: searchService}
}

// Search handles GET /v1/places?q=&lat=&lng=. Requests carrying the same
// X-Session-ID header replace each other.
func (h *PlaceHandler) Search(c *gin.Context) {
	session := c.GetHeader(sessionHeader)
	if session == "" {
		session = c.ClientIP()
	}

	var near *domain.GeoPoint
	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng must be numbers"})
			return
		}
		near = &domain.GeoPoint{Lat: lat, Lng: lng}
	}

	places, err := h.searchService.Session(session).Search(c.Request.Context(), c.Query("q"), near)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"query": c.Query("q"), "places": places})
}
