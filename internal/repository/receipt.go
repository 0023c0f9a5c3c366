package repository

import (
	"context"

	"tripmeter/internal/domain"
)

// ReceiptRepository defines the persistence operations for receipts.
type ReceiptRepository interface {
	// Create persists a new receipt.
	Create(ctx context.Context, receipt *domain.Receipt) error

	// GetByTripID retrieves the receipt of a trip.
	GetByTripID(ctx context.Context, tripID string) (*domain.Receipt, error)
}
