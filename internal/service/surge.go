package service

import (
	"context"
	"log/slog"

	"tripmeter/internal/redis"
)

// SurgeService calculates the demand multiplier from live supply and demand.
type SurgeService struct {
	locationStore redis.LocationStoreInterface
	config        SurgeConfig
	logger        *slog.Logger
}

// NewSurgeService creates a new SurgeService.
func NewSurgeService(locationStore redis.LocationStoreInterface, config SurgeConfig, logger *slog.Logger) *SurgeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SurgeService{
		locationStore: locationStore,
		config:        config,
		logger:        logger,
	}
}

// SurgeConfig contains surge pricing configuration.
type SurgeConfig struct {
	RadiusKm       float64 // Radius to check for supply/demand
	LowSurgeRatio  float64 // Demand/supply ratio for 1.25x surge
	MedSurgeRatio  float64 // Demand/supply ratio for 1.5x surge
	HighSurgeRatio float64 // Demand/supply ratio for MaxSurge
	MaxSurge       float64 // Maximum surge multiplier
}

// DefaultSurgeConfig returns the default surge configuration.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		RadiusKm:       5.0,
		LowSurgeRatio:  1.2,
		MedSurgeRatio:  1.5,
		HighSurgeRatio: 2.0,
		MaxSurge:       2.0,
	}
}

// GetMultiplier calculates the surge multiplier for a given location.
// Returns 1.0 if no surge, up to MaxSurge if demand is high. Store errors
// fail open to 1.0.
func (s *SurgeService) GetMultiplier(ctx context.Context, lat, lng float64) float64 {
	drivers, err := s.locationStore.FindNearbyDrivers(ctx, lat, lng, s.config.RadiusKm)
	if err != nil {
		s.logger.Warn("surge supply lookup failed", "error", err)
		return 1.0
	}

	demand, err := s.locationStore.CountActiveTripsNear(ctx, lat, lng, s.config.RadiusKm)
	if err != nil {
		s.logger.Warn("surge demand lookup failed", "error", err)
		return 1.0
	}

	return calculateSurgeMultiplier(len(drivers), demand, s.config)
}

// calculateSurgeMultiplier determines the multiplier based on the demand/supply ratio.
func calculateSurgeMultiplier(supply, demand int, config SurgeConfig) float64 {
	if supply == 0 {
		if demand > 0 {
			return config.MaxSurge // Maximum surge when no drivers
		}
		return 1.0
	}

	ratio := float64(demand) / float64(supply)

	switch {
	case ratio >= config.HighSurgeRatio:
		return config.MaxSurge
	case ratio >= config.MedSurgeRatio:
		return 1.5
	case ratio >= config.LowSurgeRatio:
		return 1.25
	default:
		return 1.0
	}
}
