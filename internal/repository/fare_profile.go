package repository

import (
	"context"

	"tripmeter/internal/domain"
)

// FareProfileRepository defines the persistence operations for fare profiles.
type FareProfileRepository interface {
	// GetAll retrieves every configured profile.
	GetAll(ctx context.Context) ([]domain.FareProfile, error)

	// Upsert creates or replaces the profile of a vehicle class.
	Upsert(ctx context.Context, profile domain.FareProfile) error
}
