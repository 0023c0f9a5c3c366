package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fare_profiles (
		vehicle_class TEXT PRIMARY KEY,
		base_fare     BIGINT NOT NULL CHECK (base_fare >= 0),
		per_km_rate   BIGINT NOT NULL CHECK (per_km_rate >= 0),
		minimum_fare  BIGINT NOT NULL CHECK (minimum_fare >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS trip_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		trip_id     TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		fare        BIGINT NOT NULL,
		lat         DOUBLE PRECISION NOT NULL,
		lng         DOUBLE PRECISION NOT NULL,
		final       BOOLEAN NOT NULL DEFAULT FALSE,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS trip_snapshots_trip_id_idx ON trip_snapshots (trip_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id              TEXT PRIMARY KEY,
		trip_id         TEXT NOT NULL,
		amount          BIGINT NOT NULL,
		status          TEXT NOT NULL,
		idempotency_key TEXT NOT NULL UNIQUE,
		failure_reason  TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		settled_at      TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS trip_receipts (
		id               TEXT PRIMARY KEY,
		trip_id          TEXT NOT NULL UNIQUE,
		vehicle_class    TEXT NOT NULL,
		start_lat        DOUBLE PRECISION NOT NULL,
		start_lng        DOUBLE PRECISION NOT NULL,
		end_lat          DOUBLE PRECISION NOT NULL,
		end_lng          DOUBLE PRECISION NOT NULL,
		distance_km      DOUBLE PRECISION NOT NULL,
		duration_seconds BIGINT NOT NULL,
		total_fare       BIGINT NOT NULL,
		commission       BIGINT NOT NULL,
		driver_earnings  BIGINT NOT NULL,
		provisional_fare BOOLEAN NOT NULL,
		started_at       TIMESTAMPTZ NOT NULL,
		ended_at         TIMESTAMPTZ NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the tables used by the repositories if missing.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schema {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
