package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripmeter/internal/domain"
	"tripmeter/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// ProcessPaymentRequest is the HTTP request body for processing a payment.
// A missing amount charges the trip's receipt total.
type ProcessPaymentRequest struct {
	TripID string `json:"trip_id"`
	Amount int64  `json:"amount"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID             string     `json:"id"`
	TripID         string     `json:"trip_id"`
	Amount         int64      `json:"amount"`
	Status         string     `json:"status"`
	IdempotencyKey string     `json:"idempotency_key"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:             p.ID,
		TripID:         p.TripID,
		Amount:         int64(p.Amount),
		Status:         string(p.Status),
		IdempotencyKey: p.IdempotencyKey,
		FailureReason:  p.FailureReason,
	}
	if !p.SettledAt.IsZero() {
		settled := p.SettledAt
		resp.SettledAt = &settled
	}
	return resp
}

// ProcessPayment handles POST /v1/payments
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.TripID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "trip_id is required"})
		return
	}

	if req.Amount < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount must not be negative"})
		return
	}

	payment, err := h.paymentService.ProcessPayment(c.Request.Context(), service.ProcessPaymentRequest{
		TripID: req.TripID,
		Amount: domain.Money(req.Amount),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}
