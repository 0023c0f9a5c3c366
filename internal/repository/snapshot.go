package repository

import (
	"context"

	"tripmeter/internal/domain"
)

// SnapshotRepository defines the persistence operations for trip progress snapshots.
type SnapshotRepository interface {
	// Save appends a snapshot.
	Save(ctx context.Context, snapshot domain.TripSnapshot) error

	// Latest retrieves the newest snapshot of a trip.
	Latest(ctx context.Context, tripID string) (*domain.TripSnapshot, error)

	// ListByTrip retrieves every snapshot of a trip, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]domain.TripSnapshot, error)
}
