package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tripmeter/internal/domain"
	"tripmeter/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

const paymentColumns = `id, trip_id, amount, status, idempotency_key, failure_reason, created_at, settled_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, trip_id, amount, status, idempotency_key, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.TripID,
		int64(payment.Amount),
		string(payment.Status),
		payment.IdempotencyKey,
		payment.FailureReason,
		payment.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateKey, payment.IdempotencyKey)
	}

	return err
}

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// GetByIdempotencyKey retrieves a payment by its idempotency key.
// Returns nil if no payment exists with the given key.
func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payment, nil
}

// Settle moves a PENDING payment to its final status. Only the first
// settlement wins.
func (r *PaymentRepository) Settle(ctx context.Context, id string, status domain.PaymentStatus, reason string) error {
	query := `
		UPDATE payments SET status = $1, failure_reason = $2, settled_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query, string(status), reason, id, string(domain.PaymentStatusPending))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrAlreadySettled
	}

	return nil
}

// Reopen moves a ROLLED_BACK payment back to PENDING. Only one concurrent
// caller succeeds; the others get ErrNotRolledBack.
func (r *PaymentRepository) Reopen(ctx context.Context, id string, amount domain.Money) error {
	query := `
		UPDATE payments SET status = $1, amount = $2, failure_reason = '', settled_at = NULL
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		string(domain.PaymentStatusPending),
		int64(amount),
		id,
		string(domain.PaymentStatusRolledBack),
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrNotRolledBack
	}

	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var amount int64
	var status string
	var settledAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.TripID,
		&amount,
		&status,
		&payment.IdempotencyKey,
		&payment.FailureReason,
		&payment.CreatedAt,
		&settledAt,
	)
	if err != nil {
		return nil, err
	}

	payment.Amount = domain.Money(amount)
	payment.Status = domain.PaymentStatus(status)
	if settledAt.Valid {
		payment.SettledAt = settledAt.Time
	}
	return &payment, nil
}
