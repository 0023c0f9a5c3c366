package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tripmeter/internal/domain"
	"tripmeter/internal/geolocation"
	"tripmeter/internal/service"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 5 * time.Second
)

// PositionPublisher accepts position samples for a trip.
type PositionPublisher interface {
	Publish(tripID string, s geolocation.Sample) error
}

// TrackingHandler handles HTTP requests for live trip tracking.
type TrackingHandler struct {
	trackingService *service.TrackingService
	receiptService  *service.ReceiptService
	positions       PositionPublisher
	upgrader        websocket.Upgrader
	logger          *slog.Logger
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(
	trackingService *service.TrackingService,
	receiptService *service.ReceiptService,
	positions PositionPublisher,
	logger *slog.Logger,
) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
		receiptService:  receiptService,
		positions:       positions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// StartTrackingRequest is the HTTP request body for starting to track a trip.
type StartTrackingRequest struct {
	VehicleClass string           `json:"vehicle_class"`
	Destination  *domain.GeoPoint `json:"destination,omitempty"`
}

// Start handles POST /v1/trips/:id/tracking/start
func (h *TrackingHandler) Start(c *gin.Context) {
	var req StartTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.trackingService.StartTracking(c.Request.Context(), service.StartTrackingRequest{
		TripID:       c.Param("id"),
		VehicleClass: req.VehicleClass,
		Destination:  req.Destination,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, trip)
}

// Stop handles POST /v1/trips/:id/tracking/stop
func (h *TrackingHandler) Stop(c *gin.Context) {
	result, err := h.trackingService.StopTracking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, result)
}

// Get handles GET /v1/trips/:id/tracking. Trips tracked elsewhere are
// answered from the newest persisted snapshot.
func (h *TrackingHandler) Get(c *gin.Context) {
	tripID := c.Param("id")

	trip, err := h.trackingService.Snapshot(tripID)
	if err == nil {
		respondJSON(c, http.StatusOK, trip)
		return
	}
	if !errors.Is(err, service.ErrTripNotTracked) {
		respondError(c, err)
		return
	}

	snapshot, err := h.trackingService.LatestSnapshot(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{
		"trip_id":     snapshot.TripID,
		"distance_km": snapshot.DistanceKm,
		"fare":        snapshot.Fare,
		"position":    snapshot.Position,
		"final":       snapshot.Final,
		"recorded_at": snapshot.RecordedAt,
		"is_tracking": false,
	})
}

// Receipt handles GET /v1/trips/:id/receipt; ?format=text returns the printable form.
func (h *TrackingHandler) Receipt(c *gin.Context) {
	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, service.FormatReceipt(receipt))
		return
	}
	respondJSON(c, http.StatusOK, receipt)
}

// PostPosition handles POST /v1/trips/:id/positions
func (h *TrackingHandler) PostPosition(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sample, err := geolocation.ParsePosition(body)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.positions.Publish(c.Param("id"), sample); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

type wsServerMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PositionStream handles GET /v1/trips/:id/positions/ws. Each text frame is
// one position message.
func (h *TrackingHandler) PositionStream(c *gin.Context) {
	tripID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "trip_id", tripID, "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("ws position stream connected", "trip_id", tripID)

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, tripID, done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("ws read failed", "trip_id", tripID, "error", err)
			}
			return
		}

		sample, err := geolocation.ParsePosition(msg)
		if err == nil {
			err = h.positions.Publish(tripID, sample)
		}
		if err != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if werr := conn.WriteJSON(wsServerMessage{Type: "error", Message: err.Error()}); werr != nil {
				return
			}
		}
	}
}

func (h *TrackingHandler) pingLoop(conn *websocket.Conn, tripID string, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				h.logger.Warn("ws ping failed", "trip_id", tripID, "error", err)
				return
			}
		}
	}
}
