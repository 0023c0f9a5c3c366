package redis

import (
	"context"
	"time"

	"tripmeter/internal/domain"
)

// LocationStoreInterface defines the interface for driver and trip location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
	UpdateTripPosition(ctx context.Context, tripID string, p domain.GeoPoint) error
	CountActiveTripsNear(ctx context.Context, lat, lng, radiusKm float64) (int, error)
	RemoveTripPosition(ctx context.Context, tripID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID, owner string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID, owner string) error
}

// SnapshotCacheInterface defines the live trip snapshot cache.
type SnapshotCacheInterface interface {
	GetTripSnapshot(ctx context.Context, tripID string) (*CachedSnapshot, error)
	SetTripSnapshot(ctx context.Context, snapshot domain.TripSnapshot) error
	InvalidateTripSnapshot(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ SnapshotCacheInterface = (*CacheStore)(nil)
)
