package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadySettled is returned when a payment is no longer PENDING.
	ErrAlreadySettled = errors.New("payment already settled")

	// ErrDuplicateKey is returned when a payment with the same idempotency key exists.
	ErrDuplicateKey = errors.New("duplicate idempotency key")

	// ErrNotRolledBack is returned when reopening a payment that is not ROLLED_BACK.
	ErrNotRolledBack = errors.New("payment is not rolled back")
)
