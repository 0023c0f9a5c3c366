package tests

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/repository"
	"tripmeter/internal/service"
)

func finishedTrip(fare domain.Money) domain.TrackedTrip {
	started := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	return domain.TrackedTrip{
		TripID:          "trip-r",
		VehicleClass:    "standard",
		StartPosition:   domain.TimedPoint{GeoPoint: monasPoint},
		Path:            []domain.TimedPoint{{GeoPoint: blokMPoint}},
		TotalDistanceKm: 9.85,
		TotalFare:       fare,
		StartedAt:       started,
		StoppedAt:       started.Add(25 * time.Minute),
	}
}

func TestReceipt_CommissionSplit(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		rate           float64
		fare           domain.Money
		wantCommission domain.Money
	}{
		{name: "default rate", rate: service.DefaultCommissionRate, fare: 2970, wantCommission: 297},
		{name: "rounds half up", rate: 0.10, fare: 2975, wantCommission: 298},
		{name: "zero rate", rate: 0, fare: 2970, wantCommission: 0},
		{name: "whole fare", rate: 1, fare: 2970, wantCommission: 2970},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := NewMockReceiptRepository()
			receipts, err := service.NewReceiptService(repo, nil, tc.rate, DiscardLogger())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			receipt, err := receipts.GenerateReceipt(context.Background(), finishedTrip(tc.fare))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if receipt.Commission != tc.wantCommission {
				t.Errorf("expected commission %d, got %d", tc.wantCommission, receipt.Commission)
			}
			if receipt.Commission+receipt.DriverEarnings != receipt.TotalFare {
				t.Errorf("split %d+%d does not add up to %d", receipt.Commission, receipt.DriverEarnings, receipt.TotalFare)
			}
			if receipt.Duration != 25*time.Minute {
				t.Errorf("expected 25m, got %v", receipt.Duration)
			}
			if receipt.End != blokMPoint {
				t.Errorf("expected end at last path point, got %v", receipt.End)
			}
			if repo.CreateCallCount != 1 {
				t.Errorf("expected receipt to be stored once, got %d", repo.CreateCallCount)
			}
		})
	}
}

func TestReceipt_InvalidRate(t *testing.T) {
	t.Parallel()

	for _, rate := range []float64{-0.1, 1.5} {
		if _, err := service.NewReceiptService(nil, nil, rate, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("rate %v: expected ErrInvalidArgument, got %v", rate, err)
		}
	}
}

func TestReceipt_StillTrackingRejected(t *testing.T) {
	t.Parallel()

	receipts, _ := service.NewReceiptService(NewMockReceiptRepository(), nil, 0.1, DiscardLogger())
	trip := finishedTrip(2000)
	trip.IsTracking = true

	if _, err := receipts.GenerateReceipt(context.Background(), trip); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestReceipt_GetAndFormat(t *testing.T) {
	t.Parallel()

	repo := NewMockReceiptRepository()
	receipts, _ := service.NewReceiptService(repo, nil, 0.1, DiscardLogger())
	ctx := context.Background()

	trip := finishedTrip(2970)
	trip.ProvisionalFare = true
	if _, err := receipts.GenerateReceipt(ctx, trip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	receipt, err := receipts.GetReceipt(ctx, "trip-r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := service.FormatReceipt(receipt)
	for _, want := range []string{"Trip ID: trip-r", "9.85 km", "2970 (provisional)", "Platform fee:     297", "25 min"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected receipt text to contain %q", want)
		}
	}

	if _, err := receipts.GetReceipt(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
