package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	// PaymentStatusPending is the provisional local state before the provider answers.
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusConfirmed  PaymentStatus = "CONFIRMED"
	PaymentStatusRolledBack PaymentStatus = "ROLLED_BACK"
)

// Payment represents a payment for a trip.
type Payment struct {
	ID             string
	TripID         string
	Amount         Money
	Status         PaymentStatus
	IdempotencyKey string
	FailureReason  string
	CreatedAt      time.Time
	SettledAt      time.Time
}
