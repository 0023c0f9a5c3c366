package postgres

import (
	"context"
	"database/sql"
	"errors"

	"tripmeter/internal/domain"
	"tripmeter/internal/repository"
)

// SnapshotRepository is a PostgreSQL implementation of repository.SnapshotRepository.
type SnapshotRepository struct {
	q Querier
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{q: db}
}

// Save appends a snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.TripSnapshot) error {
	query := `
		INSERT INTO trip_snapshots (trip_id, distance_km, fare, lat, lng, final, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		snapshot.TripID,
		snapshot.DistanceKm,
		int64(snapshot.Fare),
		snapshot.Position.Lat,
		snapshot.Position.Lng,
		snapshot.Final,
		snapshot.RecordedAt,
	)

	return err
}

// Latest retrieves the newest snapshot of a trip.
func (r *SnapshotRepository) Latest(ctx context.Context, tripID string) (*domain.TripSnapshot, error) {
	query := `
		SELECT trip_id, distance_km, fare, lat, lng, final, recorded_at
		FROM trip_snapshots WHERE trip_id = $1
		ORDER BY recorded_at DESC LIMIT 1
	`

	snap, err := scanSnapshot(r.q.QueryRowContext(ctx, query, tripID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return snap, nil
}

// ListByTrip retrieves every snapshot of a trip, oldest first.
func (r *SnapshotRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.TripSnapshot, error) {
	query := `
		SELECT trip_id, distance_km, fare, lat, lng, final, recorded_at
		FROM trip_snapshots WHERE trip_id = $1
		ORDER BY recorded_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []domain.TripSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}

	return snapshots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*domain.TripSnapshot, error) {
	var snap domain.TripSnapshot
	var fare int64
	err := row.Scan(
		&snap.TripID,
		&snap.DistanceKm,
		&fare,
		&snap.Position.Lat,
		&snap.Position.Lng,
		&snap.Final,
		&snap.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	snap.Fare = domain.Money(fare)
	return &snap, nil
}
