package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tripmeter/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripCompleted     NotificationType = "TRIP_COMPLETED"
	NotificationReceiptReady      NotificationType = "RECEIPT_READY"
	NotificationPaymentConfirmed  NotificationType = "PAYMENT_CONFIRMED"
	NotificationPaymentRolledBack NotificationType = "PAYMENT_ROLLED_BACK"
)

// routing keys on the events exchange
var routingKeys = map[NotificationType]string{
	NotificationTripCompleted:     "trip.completed",
	NotificationReceiptReady:      "trip.receipt_ready",
	NotificationPaymentConfirmed:  "payment.confirmed",
	NotificationPaymentRolledBack: "payment.rolled_back",
}

// Notification is one event sent to downstream consumers.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	TripID    string           `json:"trip_id"`
	Data      any              `json:"data"`
	CreatedAt time.Time        `json:"created_at"`
}

// EventPublisher delivers a serialized event under a routing key.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// NotificationService hands trip and payment events to the event bus.
// Delivery guarantees belong to the bus.
type NotificationService struct {
	publisher EventPublisher
	logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService. Without a
// publisher notifications are only logged.
func NewNotificationService(publisher EventPublisher, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{publisher: publisher, logger: logger}
}

// NotifyTripCompleted announces a finished trip.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, summary domain.TripSummary) error {
	return s.send(ctx, Notification{
		Type:   NotificationTripCompleted,
		TripID: summary.TripID,
		Data:   summary,
	})
}

// NotifyReceiptReady announces that a receipt can be fetched.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, receipt *domain.Receipt) error {
	return s.send(ctx, Notification{
		Type:   NotificationReceiptReady,
		TripID: receipt.TripID,
		Data: map[string]any{
			"receipt_id":      receipt.ID,
			"total_fare":      receipt.TotalFare,
			"commission":      receipt.Commission,
			"driver_earnings": receipt.DriverEarnings,
		},
	})
}

// NotifyPaymentSettled announces the final status of a payment.
func (s *NotificationService) NotifyPaymentSettled(ctx context.Context, payment *domain.Payment) error {
	typ := NotificationPaymentConfirmed
	if payment.Status == domain.PaymentStatusRolledBack {
		typ = NotificationPaymentRolledBack
	}
	return s.send(ctx, Notification{
		Type:   typ,
		TripID: payment.TripID,
		Data: map[string]any{
			"payment_id": payment.ID,
			"amount":     payment.Amount,
			"reason":     payment.FailureReason,
		},
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	s.logger.Info("notification",
		"type", n.Type,
		"trip_id", n.TripID,
		"id", n.ID,
	)

	if s.publisher == nil {
		return nil
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.publisher.Publish(ctx, routingKeys[n.Type], body); err != nil {
		return fmt.Errorf("%w: publish %s: %v", domain.ErrTransient, n.Type, err)
	}
	return nil
}
