package tests

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/maps"
	"tripmeter/internal/redis"
	"tripmeter/internal/repository"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters
	CreateCallCount int32
	SettleCallCount int32
	ReopenCallCount int32

	// Error injection
	CreateError error
	SettleError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.IdempotencyKey == payment.IdempotencyKey {
			return repository.ErrDuplicateKey
		}
	}
	stored := *payment
	m.payments[payment.ID] = &stored
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.IdempotencyKey == key {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil // Not found, but not an error for idempotency check
}

func (m *MockPaymentRepository) Settle(ctx context.Context, id string, status domain.PaymentStatus, reason string) error {
	atomic.AddInt32(&m.SettleCallCount, 1)
	if m.SettleError != nil {
		return m.SettleError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusPending {
		return repository.ErrAlreadySettled
	}
	payment.Status = status
	payment.FailureReason = reason
	payment.SettledAt = time.Now()
	return nil
}

func (m *MockPaymentRepository) Reopen(ctx context.Context, id string, amount domain.Money) error {
	atomic.AddInt32(&m.ReopenCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusRolledBack {
		return repository.ErrNotRolledBack
	}
	payment.Status = domain.PaymentStatusPending
	payment.Amount = amount
	payment.FailureReason = ""
	payment.SettledAt = time.Time{}
	return nil
}

// GetPaymentByTripID returns payment for a trip.
func (m *MockPaymentRepository) GetPaymentByTripID(tripID string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.TripID == tripID {
			copy := *p
			return &copy
		}
	}
	return nil
}

// CountPayments returns the number of payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ──────────────────────────────────────────────
// MOCK SNAPSHOT REPOSITORY
// ──────────────────────────────────────────────

// MockSnapshotRepository is a mock implementation of SnapshotRepository.
type MockSnapshotRepository struct {
	mu        sync.RWMutex
	snapshots []domain.TripSnapshot

	SaveCallCount int32
	SaveError     error
}

// NewMockSnapshotRepository creates a new mock snapshot repository.
func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{}
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot domain.TripSnapshot) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *MockSnapshotRepository) Latest(ctx context.Context, tripID string) (*domain.TripSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].TripID == tripID {
			s := m.snapshots[i]
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockSnapshotRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.TripSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.TripSnapshot
	for _, s := range m.snapshots {
		if s.TripID == tripID {
			out = append(out, s)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK RECEIPT REPOSITORY
// ──────────────────────────────────────────────

// MockReceiptRepository is a mock implementation of ReceiptRepository.
type MockReceiptRepository struct {
	mu       sync.RWMutex
	receipts map[string]*domain.Receipt

	CreateCallCount int32
	CreateError     error
}

// NewMockReceiptRepository creates a new mock receipt repository.
func NewMockReceiptRepository() *MockReceiptRepository {
	return &MockReceiptRepository{
		receipts: make(map[string]*domain.Receipt),
	}
}

// AddReceipt stores a receipt for test setup.
func (m *MockReceiptRepository) AddReceipt(receipt *domain.Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[receipt.TripID] = receipt
}

func (m *MockReceiptRepository) Create(ctx context.Context, receipt *domain.Receipt) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.AddReceipt(receipt)
	return nil
}

func (m *MockReceiptRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	receipt, ok := m.receipts[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *receipt
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.DriverLocation
	trips     map[string]domain.GeoPoint

	// Counters
	UpdateLocationCallCount     int32
	UpdateTripPositionCallCount int32

	// Error injection
	UpdateLocationError    error
	FindNearbyDriversError error
	CountTripsError        error
	TripPositionError      error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.DriverLocation, 0),
		trips:     make(map[string]domain.GeoPoint),
	}
}

// SetLocations sets all driver locations (for test setup).
func (m *MockLocationStore) SetLocations(locations []redis.DriverLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = locations
}

// SetActiveTrips replaces the live trip positions (for test setup).
func (m *MockLocationStore) SetActiveTrips(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = make(map[string]domain.GeoPoint, n)
	for i := 0; i < n; i++ {
		m.trips[string(rune('a'+i))] = domain.GeoPoint{}
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Update existing or add new.
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.DriverLocation{
		DriverID: driverID,
		Lat:      lat,
		Lng:      lng,
	})
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindNearbyDriversError != nil {
		return nil, m.FindNearbyDriversError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return all locations (mock doesn't do real geo filtering).
	result := make([]redis.DriverLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockLocationStore) UpdateTripPosition(ctx context.Context, tripID string, p domain.GeoPoint) error {
	atomic.AddInt32(&m.UpdateTripPositionCallCount, 1)
	if m.TripPositionError != nil {
		return m.TripPositionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[tripID] = p
	return nil
}

func (m *MockLocationStore) CountActiveTripsNear(ctx context.Context, lat, lng, radiusKm float64) (int, error) {
	if m.CountTripsError != nil {
		return 0, m.CountTripsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips), nil
}

func (m *MockLocationStore) RemoveTripPosition(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, tripID)
	return nil
}

// HasLocation checks if a driver location exists.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.DriverID == driverID {
			return true
		}
	}
	return false
}

// HasTrip checks if a trip is in the demand index.
func (m *MockLocationStore) HasTrip(tripID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.trips[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// ForceAcquireFailure simulates a lock held by another process.
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

func (m *MockLockStore) AcquireTripLock(ctx context.Context, tripID, owner string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[tripID]; held {
		return false, nil
	}
	m.locks[tripID] = owner
	return true, nil
}

func (m *MockLockStore) ReleaseTripLock(ctx context.Context, tripID, owner string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[tripID] == owner {
		delete(m.locks, tripID)
	}
	return nil
}

// IsLocked checks if a trip is locked (for test assertions).
func (m *MockLockStore) IsLocked(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK SNAPSHOT CACHE
// ──────────────────────────────────────────────

// MockSnapshotCache is a mock implementation of the live snapshot cache.
type MockSnapshotCache struct {
	mu        sync.Mutex
	snapshots map[string]*redis.CachedSnapshot

	SetError error
}

// NewMockSnapshotCache creates a new mock snapshot cache.
func NewMockSnapshotCache() *MockSnapshotCache {
	return &MockSnapshotCache{snapshots: make(map[string]*redis.CachedSnapshot)}
}

func (m *MockSnapshotCache) GetTripSnapshot(ctx context.Context, tripID string) (*redis.CachedSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[tripID]
	if !ok {
		return nil, nil
	}
	copy := *s
	return &copy, nil
}

func (m *MockSnapshotCache) SetTripSnapshot(ctx context.Context, snapshot domain.TripSnapshot) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.TripID] = &redis.CachedSnapshot{
		TripID:     snapshot.TripID,
		DistanceKm: snapshot.DistanceKm,
		Fare:       snapshot.Fare,
		Lat:        snapshot.Position.Lat,
		Lng:        snapshot.Position.Lng,
		Final:      snapshot.Final,
		RecordedAt: snapshot.RecordedAt,
	}
	return nil
}

func (m *MockSnapshotCache) InvalidateTripSnapshot(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, tripID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK ROUTER
// ──────────────────────────────────────────────

// MockRouter is a mock road-routing backend.
type MockRouter struct {
	// Path is returned when Error is nil. A nil Path yields a two-point
	// route between the endpoints of DistanceMeters.
	Path           *maps.Path
	DistanceMeters float64
	Error          error

	// Delay holds every call before answering, honoring ctx.
	Delay time.Duration
	// Release, when set, holds every call until it is closed.
	Release chan struct{}

	RouteCallCount int32
}

func (m *MockRouter) Route(ctx context.Context, from, to domain.GeoPoint) (*maps.Path, error) {
	atomic.AddInt32(&m.RouteCallCount, 1)

	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Error != nil {
		return nil, m.Error
	}
	if m.Path != nil {
		p := *m.Path
		return &p, nil
	}
	return &maps.Path{
		Points:         []domain.GeoPoint{from, to},
		DistanceMeters: m.DistanceMeters,
	}, nil
}

// Calls returns the number of Route calls.
func (m *MockRouter) Calls() int {
	return int(atomic.LoadInt32(&m.RouteCallCount))
}

// ──────────────────────────────────────────────
// MOCK PLACE FINDER
// ──────────────────────────────────────────────

// MockPlaceFinder answers autocomplete queries after a per-query delay.
type MockPlaceFinder struct {
	// Delays maps a query to how long its answer takes.
	Delays map[string]time.Duration
	Error  error

	mu        sync.Mutex
	cancelled []string
}

func (m *MockPlaceFinder) Autocomplete(ctx context.Context, query string, near *domain.GeoPoint) ([]maps.Place, error) {
	if d := m.Delays[query]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			m.mu.Lock()
			m.cancelled = append(m.cancelled, query)
			m.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	if m.Error != nil {
		return nil, m.Error
	}
	return []maps.Place{{PlaceID: "place-" + query, Description: query + " Street", MainText: query}}, nil
}

// Cancelled returns the queries whose context was cancelled, sorted.
func (m *MockPlaceFinder) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.cancelled...)
	sort.Strings(out)
	return out
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent is one message sent through MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	Body       []byte
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	Error error
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if m.Error != nil {
		return m.Error
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, Body: append([]byte(nil), body...)})
	return nil
}

// Events returns the events with the given routing key.
func (m *MockPublisher) Events(routingKey string) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PublishedEvent
	for _, e := range m.events {
		if e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK PSP (Payment Service Provider)
// ──────────────────────────────────────────────

// MockPSP is a mock payment service provider.
type MockPSP struct {
	mu sync.Mutex

	// Control behavior
	ShouldFail bool
	FailError  error

	// Counters
	ChargeCallCount int32
}

// NewMockPSP creates a new mock PSP.
func NewMockPSP() *MockPSP {
	return &MockPSP{}
}

func (m *MockPSP) Charge(ctx context.Context, tripID string, amount domain.Money) (bool, error) {
	atomic.AddInt32(&m.ChargeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailError != nil {
		return false, m.FailError
	}
	if m.ShouldFail {
		return false, nil
	}
	return true, nil
}

// SetFailure configures the PSP to fail.
func (m *MockPSP) SetFailure(shouldFail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldFail = shouldFail
	m.FailError = err
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
	ErrMockUnreachable  = errors.New("mock: connection refused")
)
