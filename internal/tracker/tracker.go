// Package tracker follows one trip's position stream and keeps its distance,
// speed and running fare up to date.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/geo"
	"tripmeter/internal/pricing"
)

// State is the lifecycle state of a Tracker.
type State int

const (
	StateIdle State = iota
	StateTracking
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WatchOptions configures a position subscription.
type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// PositionSource emits position samples for a single trip.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts WatchOptions) (domain.TimedPoint, error)
	// Watch calls fn for every new sample in arrival order until the
	// returned function is called.
	Watch(opts WatchOptions, fn func(domain.TimedPoint)) (func(), error)
}

// Persister stores progress snapshots. Failures are logged, never fatal.
type Persister interface {
	PersistSnapshot(ctx context.Context, snapshot domain.TripSnapshot) error
}

// Notifier is told once when a trip completes.
type Notifier interface {
	NotifyTripCompleted(ctx context.Context, summary domain.TripSummary) error
}

// Trip describes what to track.
type Trip struct {
	ID           string
	VehicleClass string
	Profile      domain.FareProfile
	// Multipliers are fixed for the whole trip.
	Multipliers     domain.Multipliers
	ProvisionalFare bool
	Planned         *domain.RouteEstimate
}

// Config holds tracker tuning.
type Config struct {
	NoiseFloorKm    float64
	MaxSpeedKmh     float64
	PersistInterval time.Duration
	// PersistTimeout bounds one persistence call.
	PersistTimeout time.Duration
	Watch          WatchOptions
	Now            func() time.Time
}

// DefaultConfig returns the production tracker settings.
func DefaultConfig() Config {
	return Config{
		NoiseFloorKm:    0.001,
		MaxSpeedKmh:     120,
		PersistInterval: 15 * time.Second,
		PersistTimeout:  5 * time.Second,
		Watch: WatchOptions{
			HighAccuracy: true,
			Timeout:      10 * time.Second,
			MaxAge:       5 * time.Second,
		},
		Now: time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NoiseFloorKm <= 0 {
		c.NoiseFloorKm = d.NoiseFloorKm
	}
	if c.MaxSpeedKmh <= 0 {
		c.MaxSpeedKmh = d.MaxSpeedKmh
	}
	if c.PersistInterval <= 0 {
		c.PersistInterval = d.PersistInterval
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = d.PersistTimeout
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// Tracker owns the TrackedTrip of one trip. A Tracker runs once: after Stop
// a new Tracker is needed.
type Tracker struct {
	source    PositionSource
	persister Persister
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	trip        domain.TrackedTrip
	profile     domain.FareProfile
	multipliers domain.Multipliers
	unsubscribe func()
	stopPersist chan struct{}
	persistDone chan struct{}
}

// New creates an idle Tracker. persister and notifier may be nil.
func New(source PositionSource, persister Persister, notifier Notifier, cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		source:    source,
		persister: persister,
		notifier:  notifier,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Start captures the current position, prices the trip at zero distance and
// subscribes to position updates.
func (t *Tracker) Start(ctx context.Context, trip Trip) error {
	if trip.ID == "" {
		return fmt.Errorf("%w: empty trip id", domain.ErrInvalidArgument)
	}
	if t.source == nil {
		return fmt.Errorf("%w: no position source", domain.ErrInvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return fmt.Errorf("%w: cannot start trip %s while %s", domain.ErrInvalidState, trip.ID, t.state)
	}

	fare, err := pricing.EstimateFare(0, trip.Profile, trip.Multipliers)
	if err != nil {
		return err
	}

	start, err := t.source.CurrentPosition(ctx, t.cfg.Watch)
	if err != nil {
		return fmt.Errorf("start trip %s: %w", trip.ID, err)
	}
	if err := geo.Validate(start.GeoPoint); err != nil {
		return fmt.Errorf("start trip %s: %w", trip.ID, err)
	}

	t.profile = trip.Profile
	t.multipliers = trip.Multipliers
	t.trip = domain.TrackedTrip{
		TripID:          trip.ID,
		VehicleClass:    trip.VehicleClass,
		StartPosition:   start,
		TotalFare:       fare,
		ProvisionalFare: trip.ProvisionalFare,
		StartedAt:       t.cfg.Now(),
		IsTracking:      true,
	}
	if trip.Planned != nil {
		t.trip.PlannedDistanceKm = trip.Planned.DistanceKm
	}

	unsubscribe, err := t.source.Watch(t.cfg.Watch, t.onPositionUpdate)
	if err != nil {
		t.trip = domain.TrackedTrip{}
		return fmt.Errorf("watch trip %s: %w", trip.ID, err)
	}
	t.unsubscribe = unsubscribe
	t.state = StateTracking

	t.stopPersist = make(chan struct{})
	t.persistDone = make(chan struct{})
	go t.persistLoop(t.stopPersist, t.persistDone)

	t.logger.Info("trip tracking started",
		"trip_id", trip.ID,
		"vehicle_class", trip.VehicleClass,
		"fare", fare,
		"provisional", trip.ProvisionalFare,
	)
	return nil
}

// onPositionUpdate is the subscription callback.
func (t *Tracker) onPositionUpdate(pos domain.TimedPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateTracking {
		return
	}

	last := t.trip.LastPosition()
	increment, err := geo.DistanceKm(last.GeoPoint, pos.GeoPoint)
	if err != nil {
		t.logger.Warn("position discarded", "trip_id", t.trip.TripID, "error", err)
		return
	}
	if increment < t.cfg.NoiseFloorKm {
		return
	}

	t.trip.Path = append(t.trip.Path, pos)
	t.trip.TotalDistanceKm += increment

	if dtHours := hoursBetween(last, pos); dtHours > 0 {
		t.trip.CurrentSpeedKmh = clamp(increment/dtHours, 0, t.cfg.MaxSpeedKmh)
	}
	if elapsed := hoursBetween(t.trip.StartPosition, pos); elapsed > 0 {
		t.trip.AverageSpeedKmh = t.trip.TotalDistanceKm / elapsed
	}

	t.recomputeFare()
}

// recomputeFare never lowers the fare. Callers hold t.mu.
func (t *Tracker) recomputeFare() {
	fare, err := pricing.EstimateFare(t.trip.TotalDistanceKm, t.profile, t.multipliers)
	if err != nil {
		t.logger.Error("fare recomputation failed", "trip_id", t.trip.TripID, "error", err)
		return
	}
	if fare > t.trip.TotalFare {
		t.trip.TotalFare = fare
	}
}

// Stop unsubscribes, cancels periodic persistence, finalizes the fare and
// returns the finished trip.
func (t *Tracker) Stop(ctx context.Context) (domain.TrackedTrip, error) {
	t.mu.Lock()
	if t.state != StateTracking {
		state := t.state
		t.mu.Unlock()
		return domain.TrackedTrip{}, fmt.Errorf("%w: cannot stop while %s", domain.ErrInvalidState, state)
	}
	t.state = StateStopped
	unsubscribe := t.unsubscribe
	stopPersist, persistDone := t.stopPersist, t.persistDone
	t.unsubscribe = nil
	t.mu.Unlock()

	// The source may be delivering a sample that waits on t.mu, so
	// unsubscribing happens without holding it.
	if unsubscribe != nil {
		unsubscribe()
	}
	close(stopPersist)
	<-persistDone

	t.mu.Lock()
	t.trip.IsTracking = false
	t.trip.StoppedAt = t.cfg.Now()
	t.recomputeFare()
	final := t.trip.Clone()
	t.mu.Unlock()

	t.persist(ctx, final, true)

	if t.notifier != nil {
		summary := domain.TripSummary{
			TripID:          final.TripID,
			DistanceKm:      final.TotalDistanceKm,
			Fare:            final.TotalFare,
			DurationSeconds: durationSeconds(final),
		}
		if err := t.notifier.NotifyTripCompleted(ctx, summary); err != nil {
			t.logger.Warn("trip completion notification failed", "trip_id", final.TripID, "error", err)
		}
	}

	t.logger.Info("trip tracking stopped",
		"trip_id", final.TripID,
		"distance_km", final.TotalDistanceKm,
		"fare", final.TotalFare,
	)
	return final, nil
}

// Snapshot returns a copy of the current trip state.
func (t *Tracker) Snapshot() domain.TrackedTrip {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trip.Clone()
}

// State returns the lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) persistLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.cfg.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.persist(context.Background(), t.Snapshot(), false)
		}
	}
}

func (t *Tracker) persist(ctx context.Context, trip domain.TrackedTrip, final bool) {
	if t.persister == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.cfg.PersistTimeout)
	defer cancel()

	snapshot := domain.TripSnapshot{
		TripID:     trip.TripID,
		DistanceKm: trip.TotalDistanceKm,
		Fare:       trip.TotalFare,
		Position:   trip.LastPosition().GeoPoint,
		Final:      final,
		RecordedAt: t.cfg.Now(),
	}
	if err := t.persister.PersistSnapshot(ctx, snapshot); err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, domain.ErrTransient) {
			level = slog.LevelError
		}
		t.logger.Log(ctx, level, "trip snapshot not persisted",
			"trip_id", trip.TripID,
			"final", final,
			"error", err,
		)
	}
}

func hoursBetween(from, to domain.TimedPoint) float64 {
	return float64(to.TimestampMs-from.TimestampMs) / float64(time.Hour/time.Millisecond)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func durationSeconds(trip domain.TrackedTrip) int64 {
	if trip.StoppedAt.IsZero() || trip.StartedAt.IsZero() {
		return 0
	}
	return int64(trip.StoppedAt.Sub(trip.StartedAt) / time.Second)
}
