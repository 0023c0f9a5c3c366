package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tripmeter/internal/domain"
	"tripmeter/internal/pricing"
	"tripmeter/internal/repository"
)

// DefaultCommissionRate is the platform share of a fare.
const DefaultCommissionRate = 0.10

// ReceiptService handles receipt generation.
type ReceiptService struct {
	receiptRepo         repository.ReceiptRepository
	notificationService *NotificationService
	commissionRate      float64
	logger              *slog.Logger
}

// NewReceiptService creates a new ReceiptService. commissionRate must be in [0, 1].
func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	notificationService *NotificationService,
	commissionRate float64,
	logger *slog.Logger,
) (*ReceiptService, error) {
	if commissionRate < 0 || commissionRate > 1 {
		return nil, fmt.Errorf("%w: commission rate %v outside [0, 1]", domain.ErrInvalidArgument, commissionRate)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptService{
		receiptRepo:         receiptRepo,
		notificationService: notificationService,
		commissionRate:      commissionRate,
		logger:              logger,
	}, nil
}

// GenerateReceipt builds, stores and announces the receipt of a finished trip.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, trip domain.TrackedTrip) (*domain.Receipt, error) {
	if trip.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if trip.IsTracking {
		return nil, fmt.Errorf("%w: trip %s is still tracking", domain.ErrInvalidState, trip.TripID)
	}

	commission := pricing.Percentage(trip.TotalFare, s.commissionRate)

	var duration time.Duration
	if !trip.StoppedAt.IsZero() {
		duration = trip.StoppedAt.Sub(trip.StartedAt)
	}

	receipt := &domain.Receipt{
		ID:              uuid.New().String(),
		TripID:          trip.TripID,
		VehicleClass:    trip.VehicleClass,
		Start:           trip.StartPosition.GeoPoint,
		End:             trip.LastPosition().GeoPoint,
		DistanceKm:      trip.TotalDistanceKm,
		Duration:        duration,
		TotalFare:       trip.TotalFare,
		Commission:      commission,
		DriverEarnings:  trip.TotalFare - commission,
		ProvisionalFare: trip.ProvisionalFare,
		StartedAt:       trip.StartedAt,
		EndedAt:         trip.StoppedAt,
		CreatedAt:       time.Now(),
	}

	if s.receiptRepo != nil {
		if err := s.receiptRepo.Create(ctx, receipt); err != nil {
			return nil, err
		}
	}

	if s.notificationService != nil {
		if err := s.notificationService.NotifyReceiptReady(ctx, receipt); err != nil {
			s.logger.Warn("receipt notification failed", "trip_id", receipt.TripID, "error", err)
		}
	}

	return receipt, nil
}

// GetReceipt retrieves the stored receipt of a trip.
func (s *ReceiptService) GetReceipt(ctx context.Context, tripID string) (*domain.Receipt, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if s.receiptRepo == nil {
		return nil, repository.ErrNotFound
	}
	return s.receiptRepo.GetByTripID(ctx, tripID)
}

// FormatReceipt formats the receipt as plain text (for email/print).
func FormatReceipt(receipt *domain.Receipt) string {
	fareNote := ""
	if receipt.ProvisionalFare {
		fareNote = " (provisional)"
	}
	return `
=====================================
        TRIP RECEIPT
=====================================
Receipt ID: ` + receipt.ID + `
Trip ID: ` + receipt.TripID + `
Date: ` + receipt.CreatedAt.Format("Jan 02, 2006 3:04 PM") + `

TRIP DETAILS
-------------------------------------
Vehicle:     ` + receipt.VehicleClass + `
Start:       (` + formatCoord(receipt.Start.Lat) + `, ` + formatCoord(receipt.Start.Lng) + `)
End:         (` + formatCoord(receipt.End.Lat) + `, ` + formatCoord(receipt.End.Lng) + `)
Duration:    ` + formatDuration(receipt.Duration) + `
Distance:    ` + fmt.Sprintf("%.2f", receipt.DistanceKm) + ` km

FARE BREAKDOWN
-------------------------------------
Total fare:       ` + formatMoney(receipt.TotalFare) + fareNote + `
Platform fee:     ` + formatMoney(receipt.Commission) + `
Driver earnings:  ` + formatMoney(receipt.DriverEarnings) + `

=====================================
     Thank you for riding with us!
=====================================
`
}

func formatCoord(f float64) string {
	return fmt.Sprintf("%.5f", f)
}

func formatMoney(m domain.Money) string {
	return fmt.Sprintf("%d", int64(m))
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("%d min", minutes)
}
