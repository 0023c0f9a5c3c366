package service

import (
	"context"
	"errors"
	"fmt"

	"tripmeter/internal/domain"
	"tripmeter/internal/redis"
	"tripmeter/internal/repository"
	"tripmeter/internal/tracker"
)

// SnapshotPersister stores tracker snapshots in Postgres, mirrors them into
// the Redis live cache and keeps the trip's spot in the demand index.
type SnapshotPersister struct {
	snapshotRepo  repository.SnapshotRepository
	cache         redis.SnapshotCacheInterface
	locationStore redis.LocationStoreInterface
}

var _ tracker.Persister = (*SnapshotPersister)(nil)

// NewSnapshotPersister creates a SnapshotPersister. cache and locationStore may be nil.
func NewSnapshotPersister(
	snapshotRepo repository.SnapshotRepository,
	cache redis.SnapshotCacheInterface,
	locationStore redis.LocationStoreInterface,
) *SnapshotPersister {
	return &SnapshotPersister{
		snapshotRepo:  snapshotRepo,
		cache:         cache,
		locationStore: locationStore,
	}
}

// PersistSnapshot writes s everywhere it belongs. Failures are reported as
// ErrTransient; the next interval writes again.
func (p *SnapshotPersister) PersistSnapshot(ctx context.Context, s domain.TripSnapshot) error {
	var errs []error

	if err := p.snapshotRepo.Save(ctx, s); err != nil {
		errs = append(errs, fmt.Errorf("save snapshot: %w", err))
	}

	if p.cache != nil {
		if err := p.cache.SetTripSnapshot(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("cache snapshot: %w", err))
		}
	}

	if p.locationStore != nil {
		var err error
		if s.Final {
			err = p.locationStore.RemoveTripPosition(ctx, s.TripID)
		} else {
			err = p.locationStore.UpdateTripPosition(ctx, s.TripID, s.Position)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("demand index: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrTransient, errors.Join(errs...))
	}
	return nil
}

// LatestSnapshot returns the newest known snapshot of a trip, preferring the
// live cache.
func (p *SnapshotPersister) LatestSnapshot(ctx context.Context, tripID string) (*domain.TripSnapshot, error) {
	if p.cache != nil {
		cached, err := p.cache.GetTripSnapshot(ctx, tripID)
		if err == nil && cached != nil {
			return &domain.TripSnapshot{
				TripID:     cached.TripID,
				DistanceKm: cached.DistanceKm,
				Fare:       cached.Fare,
				Position:   domain.GeoPoint{Lat: cached.Lat, Lng: cached.Lng},
				Final:      cached.Final,
				RecordedAt: cached.RecordedAt,
			}, nil
		}
	}
	return p.snapshotRepo.Latest(ctx, tripID)
}
