package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tripmeter/internal/domain"
	"tripmeter/internal/repository"
)

// PSP is the interface for a Payment Service Provider.
type PSP interface {
	Charge(ctx context.Context, tripID string, amount domain.Money) (bool, error)
}

// SandboxPSP approves every charge up to Limit. A zero Limit approves all.
type SandboxPSP struct {
	Limit domain.Money
}

// NewSandboxPSP creates a sandbox PSP.
func NewSandboxPSP(limit domain.Money) *SandboxPSP {
	return &SandboxPSP{Limit: limit}
}

// Charge simulates a payment charge.
func (p *SandboxPSP) Charge(ctx context.Context, _ string, amount domain.Money) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.Limit == 0 || amount <= p.Limit, nil
}

// PaymentService records a payment as PENDING before calling the PSP and
// settles it as CONFIRMED or ROLLED_BACK from the PSP's answer.
type PaymentService struct {
	paymentRepo         repository.PaymentRepository
	psp                 PSP
	receiptService      *ReceiptService
	notificationService *NotificationService
	logger              *slog.Logger
}

// NewPaymentService creates a new PaymentService. receiptService and
// notificationService may be nil.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	psp PSP,
	receiptService *ReceiptService,
	notificationService *NotificationService,
	logger *slog.Logger,
) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		paymentRepo:         paymentRepo,
		psp:                 psp,
		receiptService:      receiptService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// ProcessPaymentRequest contains the parameters for processing a payment.
type ProcessPaymentRequest struct {
	TripID string
	// Amount zero charges the fare on the trip's receipt.
	Amount domain.Money
}

// ProcessPayment charges a trip once. Repeated calls return the stored
// payment, except that a ROLLED_BACK payment is charged again.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*domain.Payment, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	if req.Amount == 0 && s.receiptService != nil {
		receipt, err := s.receiptService.GetReceipt(ctx, req.TripID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if receipt != nil {
			req.Amount = receipt.TotalFare
		}
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	// One payment per trip.
	idempotencyKey := fmt.Sprintf("payment:%s", req.TripID)

	// Phase one: provisional local state.
	payment, owned, err := s.claim(ctx, req, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if !owned {
		return payment, nil
	}

	// Phase two: confirm or roll back on the provider's answer.
	status, reason := domain.PaymentStatusConfirmed, ""
	success, err := s.psp.Charge(ctx, req.TripID, req.Amount)
	switch {
	case err != nil:
		status, reason = domain.PaymentStatusRolledBack, err.Error()
	case !success:
		status, reason = domain.PaymentStatusRolledBack, "declined by provider"
	}

	if err := s.paymentRepo.Settle(context.WithoutCancel(ctx), payment.ID, status, reason); err != nil {
		if errors.Is(err, repository.ErrAlreadySettled) {
			return s.paymentRepo.GetByID(ctx, payment.ID)
		}
		return nil, err
	}
	payment.Status = status
	payment.FailureReason = reason
	payment.SettledAt = time.Now()

	if s.notificationService != nil {
		if err := s.notificationService.NotifyPaymentSettled(ctx, payment); err != nil {
			s.logger.Warn("payment notification failed", "payment_id", payment.ID, "error", err)
		}
	}

	return payment, nil
}

// claim returns the trip's payment and whether this call owns its next
// charge attempt. The caller owns the attempt when it created the PENDING
// row or reopened a ROLLED_BACK one; otherwise the stored payment is returned
// as is.
func (s *PaymentService) claim(ctx context.Context, req ProcessPaymentRequest, key string) (*domain.Payment, bool, error) {
	existing, err := s.paymentRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		payment := &domain.Payment{
			ID:             uuid.New().String(),
			TripID:         req.TripID,
			Amount:         req.Amount,
			Status:         domain.PaymentStatusPending,
			IdempotencyKey: key,
			CreatedAt:      time.Now(),
		}
		err := s.paymentRepo.Create(ctx, payment)
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost the race to a concurrent request for the same trip.
			return s.stored(ctx, key)
		}
		if err != nil {
			return nil, false, err
		}
		return payment, true, nil
	}

	if existing.Status != domain.PaymentStatusRolledBack {
		return existing, false, nil
	}

	err = s.paymentRepo.Reopen(ctx, existing.ID, req.Amount)
	if errors.Is(err, repository.ErrNotRolledBack) {
		return s.stored(ctx, key)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("retrying rolled back payment",
		"payment_id", existing.ID,
		"trip_id", existing.TripID,
		"previous_reason", existing.FailureReason,
	)
	existing.Status = domain.PaymentStatusPending
	existing.Amount = req.Amount
	existing.FailureReason = ""
	existing.SettledAt = time.Time{}
	return existing, true, nil
}

func (s *PaymentService) stored(ctx context.Context, key string) (*domain.Payment, bool, error) {
	payment, err := s.paymentRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if payment == nil {
		return nil, false, fmt.Errorf("%w: payment %s", repository.ErrNotFound, key)
	}
	return payment, false, nil
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	return s.paymentRepo.GetByID(ctx, paymentID)
}
