package postgres

import (
	"context"
	"database/sql"

	"tripmeter/internal/domain"
)

// FareProfileRepository is a PostgreSQL implementation of repository.FareProfileRepository.
type FareProfileRepository struct {
	q Querier
}

// NewFareProfileRepository creates a new PostgreSQL fare profile repository.
func NewFareProfileRepository(db *sql.DB) *FareProfileRepository {
	return &FareProfileRepository{q: db}
}

// GetAll retrieves every configured profile.
func (r *FareProfileRepository) GetAll(ctx context.Context) ([]domain.FareProfile, error) {
	query := `
		SELECT vehicle_class, base_fare, per_km_rate, minimum_fare
		FROM fare_profiles ORDER BY vehicle_class
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.FareProfile
	for rows.Next() {
		var p domain.FareProfile
		var base, perKm, minimum int64
		if err := rows.Scan(&p.VehicleClass, &base, &perKm, &minimum); err != nil {
			return nil, err
		}
		p.BaseFare = domain.Money(base)
		p.PerKmRate = domain.Money(perKm)
		p.MinimumFare = domain.Money(minimum)
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// Upsert creates or replaces the profile of a vehicle class.
func (r *FareProfileRepository) Upsert(ctx context.Context, profile domain.FareProfile) error {
	query := `
		INSERT INTO fare_profiles (vehicle_class, base_fare, per_km_rate, minimum_fare)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vehicle_class) DO UPDATE
		SET base_fare = EXCLUDED.base_fare,
		    per_km_rate = EXCLUDED.per_km_rate,
		    minimum_fare = EXCLUDED.minimum_fare
	`

	_, err := r.q.ExecContext(ctx, query,
		profile.VehicleClass,
		int64(profile.BaseFare),
		int64(profile.PerKmRate),
		int64(profile.MinimumFare),
	)

	return err
}
