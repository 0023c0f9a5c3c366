package service

import (
	"context"

	"tripmeter/internal/domain"
	"tripmeter/internal/redis"
)

// DriverService keeps the driver supply index used for surge pricing.
type DriverService struct {
	locationStore redis.LocationStoreInterface
}

// NewDriverService creates a new DriverService.
func NewDriverService(locationStore redis.LocationStoreInterface) *DriverService {
	return &DriverService{locationStore: locationStore}
}

// UpdateLocationRequest contains the parameters for updating driver location.
type UpdateLocationRequest struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// UpdateLocation records a driver's position in the supply index.
func (s *DriverService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}

	if !(domain.GeoPoint{Lat: req.Lat, Lng: req.Lng}).Valid() {
		return ErrInvalidLocation
	}

	return s.locationStore.UpdateLocation(ctx, req.DriverID, req.Lat, req.Lng)
}

// SetDriverOffline removes a driver from the supply index.
func (s *DriverService) SetDriverOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	return s.locationStore.RemoveLocation(ctx, driverID)
}
