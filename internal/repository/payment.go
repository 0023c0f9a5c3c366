package repository

import (
	"context"

	"tripmeter/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicateKey when the
	// idempotency key is taken.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByIdempotencyKey retrieves a payment by its idempotency key.
	// Returns nil if no payment exists with the given key.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)

	// Settle moves a PENDING payment to its final status.
	Settle(ctx context.Context, id string, status domain.PaymentStatus, reason string) error

	// Reopen moves a ROLLED_BACK payment back to PENDING for another charge
	// attempt of amount.
	Reopen(ctx context.Context, id string, amount domain.Money) error
}
