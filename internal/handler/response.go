package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripmeter/internal/domain"
	"tripmeter/internal/repository"
	"tripmeter/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrTripNotTracked):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, repository.ErrAlreadySettled),
		errors.Is(err, service.ErrSuperseded):
		return http.StatusConflict

	case errors.Is(err, domain.ErrDegraded),
		errors.Is(err, domain.ErrTransient):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
