package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/repository"
)

// ReceiptRepository is a PostgreSQL implementation of repository.ReceiptRepository.
type ReceiptRepository struct {
	q Querier
}

// NewReceiptRepository creates a new PostgreSQL receipt repository.
func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{q: db}
}

// Create persists a new receipt.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *domain.Receipt) error {
	query := `
		INSERT INTO trip_receipts (
			id, trip_id, vehicle_class, start_lat, start_lng, end_lat, end_lng,
			distance_km, duration_seconds, total_fare, commission, driver_earnings,
			provisional_fare, started_at, ended_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		receipt.ID,
		receipt.TripID,
		receipt.VehicleClass,
		receipt.Start.Lat,
		receipt.Start.Lng,
		receipt.End.Lat,
		receipt.End.Lng,
		receipt.DistanceKm,
		int64(receipt.Duration.Seconds()),
		int64(receipt.TotalFare),
		int64(receipt.Commission),
		int64(receipt.DriverEarnings),
		receipt.ProvisionalFare,
		receipt.StartedAt,
		receipt.EndedAt,
		receipt.CreatedAt,
	)

	return err
}

// GetByTripID retrieves the receipt of a trip.
func (r *ReceiptRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Receipt, error) {
	query := `
		SELECT id, trip_id, vehicle_class, start_lat, start_lng, end_lat, end_lng,
			distance_km, duration_seconds, total_fare, commission, driver_earnings,
			provisional_fare, started_at, ended_at, created_at
		FROM trip_receipts WHERE trip_id = $1
	`

	var receipt domain.Receipt
	var durationSeconds, total, commission, earnings int64

	err := r.q.QueryRowContext(ctx, query, tripID).Scan(
		&receipt.ID,
		&receipt.TripID,
		&receipt.VehicleClass,
		&receipt.Start.Lat,
		&receipt.Start.Lng,
		&receipt.End.Lat,
		&receipt.End.Lng,
		&receipt.DistanceKm,
		&durationSeconds,
		&total,
		&commission,
		&earnings,
		&receipt.ProvisionalFare,
		&receipt.StartedAt,
		&receipt.EndedAt,
		&receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	receipt.Duration = time.Duration(durationSeconds) * time.Second
	receipt.TotalFare = domain.Money(total)
	receipt.Commission = domain.Money(commission)
	receipt.DriverEarnings = domain.Money(earnings)
	return &receipt, nil
}
