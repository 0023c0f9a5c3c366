package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"

	"tripmeter/internal/domain"
	"tripmeter/internal/redis"
	"tripmeter/internal/tracker"
)

// trackerLockTTL bounds how long a crashed process can keep a trip locked.
const trackerLockTTL = 12 * time.Hour

// PositionSources hands out per-trip position streams.
type PositionSources interface {
	Source(tripID string) tracker.PositionSource
	Forget(tripID string)
}

// TrackingService runs at most one tracker per trip.
type TrackingService struct {
	sources             PositionSources
	fareService         *FareService
	resolver            *RouteResolver
	persister           *SnapshotPersister
	notificationService *NotificationService
	receiptService      *ReceiptService
	lockStore           redis.LockStoreInterface
	nrApp               *newrelic.Application
	config              tracker.Config
	owner               string
	logger              *slog.Logger

	mu       sync.Mutex
	trackers map[string]*tracker.Tracker
}

// TrackingDeps groups the collaborators of a TrackingService. Everything but
// Sources and FareService may be nil.
type TrackingDeps struct {
	Sources             PositionSources
	FareService         *FareService
	Resolver            *RouteResolver
	Persister           *SnapshotPersister
	NotificationService *NotificationService
	ReceiptService      *ReceiptService
	LockStore           redis.LockStoreInterface
	NewRelic            *newrelic.Application
}

// NewTrackingService creates a new TrackingService.
func NewTrackingService(deps TrackingDeps, config tracker.Config, logger *slog.Logger) *TrackingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackingService{
		sources:             deps.Sources,
		fareService:         deps.FareService,
		resolver:            deps.Resolver,
		persister:           deps.Persister,
		notificationService: deps.NotificationService,
		receiptService:      deps.ReceiptService,
		lockStore:           deps.LockStore,
		nrApp:               deps.NewRelic,
		config:              config,
		owner:               uuid.New().String(),
		logger:              logger,
		trackers:            make(map[string]*tracker.Tracker),
	}
}

// StartTrackingRequest contains the parameters for starting to track a trip.
type StartTrackingRequest struct {
	TripID       string
	VehicleClass string
	// Destination, when set, seeds the planned distance from the route resolver.
	Destination *domain.GeoPoint
}

// StopTrackingResult is a finished trip and its receipt.
type StopTrackingResult struct {
	Trip    domain.TrackedTrip `json:"trip"`
	Receipt *domain.Receipt    `json:"receipt,omitempty"`
}

// StartTracking starts a tracker for the trip.
func (s *TrackingService) StartTracking(ctx context.Context, req StartTrackingRequest) (domain.TrackedTrip, error) {
	if req.TripID == "" {
		return domain.TrackedTrip{}, ErrInvalidTripID
	}
	if req.Destination != nil && !req.Destination.Valid() {
		return domain.TrackedTrip{}, ErrInvalidLocation
	}

	if err := s.reserve(req.TripID); err != nil {
		return domain.TrackedTrip{}, err
	}

	t, err := s.start(ctx, req)
	if err != nil {
		s.release(ctx, req.TripID)
		return domain.TrackedTrip{}, err
	}

	s.mu.Lock()
	s.trackers[req.TripID] = t
	s.mu.Unlock()

	return t.Snapshot(), nil
}

// reserve claims the trip locally and across processes. A nil map entry
// marks a tracker that is still starting.
func (s *TrackingService) reserve(tripID string) error {
	s.mu.Lock()
	if _, ok := s.trackers[tripID]; ok {
		s.mu.Unlock()
		return ErrTripAlreadyTracked
	}
	s.trackers[tripID] = nil
	s.mu.Unlock()

	if s.lockStore == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := s.lockStore.AcquireTripLock(ctx, tripID, s.owner, trackerLockTTL)
	if err != nil || !ok {
		s.mu.Lock()
		delete(s.trackers, tripID)
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("%w: acquire tracker lock: %v", domain.ErrTransient, err)
		}
		return ErrTripAlreadyTracked
	}
	return nil
}

func (s *TrackingService) release(ctx context.Context, tripID string) {
	s.mu.Lock()
	delete(s.trackers, tripID)
	s.mu.Unlock()

	s.sources.Forget(tripID)

	if s.lockStore != nil {
		if err := s.lockStore.ReleaseTripLock(context.WithoutCancel(ctx), tripID, s.owner); err != nil {
			s.logger.Warn("tracker lock release failed", "trip_id", tripID, "error", err)
		}
	}
}

func (s *TrackingService) start(ctx context.Context, req StartTrackingRequest) (*tracker.Tracker, error) {
	source := s.sources.Source(req.TripID)

	pickup, err := source.CurrentPosition(ctx, s.config.Watch)
	if err != nil {
		return nil, fmt.Errorf("start trip %s: %w", req.TripID, err)
	}

	profile, provisional := s.fareService.Profile(req.VehicleClass)
	if provisional {
		s.logger.Warn("unknown vehicle class, pricing with fallback profile",
			"trip_id", req.TripID,
			"vehicle_class", req.VehicleClass,
		)
	}

	trip := tracker.Trip{
		ID:              req.TripID,
		VehicleClass:    req.VehicleClass,
		Profile:         profile,
		Multipliers:     s.fareService.Multipliers(ctx, req.VehicleClass, time.Now(), pickup.GeoPoint),
		ProvisionalFare: provisional,
	}

	if req.Destination != nil && s.resolver != nil {
		planned, err := s.resolver.Resolve(ctx, pickup.GeoPoint, *req.Destination)
		if err != nil {
			return nil, err
		}
		trip.Planned = &planned
	}

	var persister tracker.Persister
	if s.persister != nil {
		persister = s.persister
	}
	var notifier tracker.Notifier
	if s.notificationService != nil {
		notifier = s.notificationService
	}

	t := tracker.New(source, persister, notifier, s.config, s.logger.With("trip_id", req.TripID))
	if err := t.Start(ctx, trip); err != nil {
		return nil, err
	}
	return t, nil
}

// StopTracking stops the trip's tracker and issues its receipt.
func (s *TrackingService) StopTracking(ctx context.Context, tripID string) (*StopTrackingResult, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	s.mu.Lock()
	t := s.trackers[tripID]
	s.mu.Unlock()
	if t == nil {
		return nil, ErrTripNotTracked
	}

	final, err := t.Stop(ctx)
	if err != nil {
		return nil, err
	}
	s.release(ctx, tripID)

	s.recordCompletion(final)

	result := &StopTrackingResult{Trip: final}
	if s.receiptService != nil {
		receipt, err := s.receiptService.GenerateReceipt(ctx, final)
		if err != nil {
			s.logger.Error("receipt generation failed", "trip_id", tripID, "error", err)
		} else {
			result.Receipt = receipt
		}
	}
	return result, nil
}

// Snapshot returns the live state of a tracked trip.
func (s *TrackingService) Snapshot(tripID string) (domain.TrackedTrip, error) {
	if tripID == "" {
		return domain.TrackedTrip{}, ErrInvalidTripID
	}

	s.mu.Lock()
	t := s.trackers[tripID]
	s.mu.Unlock()
	if t == nil {
		return domain.TrackedTrip{}, ErrTripNotTracked
	}
	return t.Snapshot(), nil
}

// LatestSnapshot returns the newest persisted snapshot of a trip, which may
// be tracked by another process.
func (s *TrackingService) LatestSnapshot(ctx context.Context, tripID string) (*domain.TripSnapshot, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if s.persister == nil {
		return nil, ErrTripNotTracked
	}
	return s.persister.LatestSnapshot(ctx, tripID)
}

// Shutdown stops every running tracker.
func (s *TrackingService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.trackers))
	for id, t := range s.trackers {
		if t != nil {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.StopTracking(ctx, id); err != nil {
			s.logger.Warn("tracker shutdown failed", "trip_id", id, "error", err)
		}
	}
}

func (s *TrackingService) recordCompletion(trip domain.TrackedTrip) {
	if s.nrApp == nil {
		return
	}
	s.nrApp.RecordCustomEvent("TripCompleted", map[string]any{
		"tripId":       trip.TripID,
		"vehicleClass": trip.VehicleClass,
		"distanceKm":   trip.TotalDistanceKm,
		"fare":         int64(trip.TotalFare),
		"provisional":  trip.ProvisionalFare,
	})
}
