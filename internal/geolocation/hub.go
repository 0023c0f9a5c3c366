// Package geolocation fans driver position samples out to the trackers that
// watch them.
package geolocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/tracker"
)

// highAccuracyLimitM is the worst reported accuracy accepted when a watcher
// asks for high accuracy.
const highAccuracyLimitM = 100.0

// Sample is one position report from a device.
type Sample struct {
	domain.TimedPoint
	AccuracyM float64 `json:"accuracy_m,omitempty"`
}

type watcher struct {
	id   uint64
	opts tracker.WatchOptions
	fn   func(domain.TimedPoint)
}

type channel struct {
	mu       sync.Mutex
	last     *Sample
	watchers []*watcher
	waiters  []chan Sample

	// touched is guarded by Hub.mu.
	touched time.Time
}

// Hub keeps the latest sample per trip and delivers new samples to watchers
// in publish order.
type Hub struct {
	mu       sync.Mutex
	channels map[string]*channel
	nextID   uint64
	now      func() time.Time
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]*channel),
		now:      time.Now,
	}
}

func (h *Hub) channel(tripID string) *channel {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[tripID]
	if !ok {
		ch = &channel{}
		h.channels[tripID] = ch
	}
	ch.touched = h.now()
	return ch
}

// Publish records s for tripID and invokes every watcher synchronously.
// Invalid coordinates are rejected.
func (h *Hub) Publish(tripID string, s Sample) error {
	if tripID == "" {
		return fmt.Errorf("%w: empty trip id", domain.ErrInvalidArgument)
	}
	if !s.Valid() {
		return fmt.Errorf("%w: coordinate (%v, %v) out of range", domain.ErrInvalidArgument, s.Lat, s.Lng)
	}
	if s.TimestampMs == 0 {
		s.TimestampMs = h.now().UnixMilli()
	}

	ch := h.channel(tripID)

	// Holding the channel lock while delivering keeps per-trip ordering even
	// when several feeds publish concurrently.
	ch.mu.Lock()
	defer ch.mu.Unlock()

	sample := s
	ch.last = &sample
	for _, w := range ch.waiters {
		w <- s
	}
	ch.waiters = nil

	for _, w := range ch.watchers {
		if w.opts.HighAccuracy && s.AccuracyM > highAccuracyLimitM {
			continue
		}
		w.fn(s.TimedPoint)
	}
	return nil
}

// Forget drops all state for tripID.
func (h *Hub) Forget(tripID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels, tripID)
}

// Evict drops trips nobody watches or waits on whose last activity is older
// than idle, and returns how many were dropped.
func (h *Hub) Evict(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-idle)
	evicted := 0
	for tripID, ch := range h.channels {
		if ch.touched.After(cutoff) {
			continue
		}
		ch.mu.Lock()
		unused := len(ch.watchers) == 0 && len(ch.waiters) == 0
		ch.mu.Unlock()
		if unused {
			delete(h.channels, tripID)
			evicted++
		}
	}
	return evicted
}

// StartEviction runs Evict every interval until the returned function is
// called. A non-positive interval or idle disables eviction.
func (h *Hub) StartEviction(interval, idle time.Duration) func() error {
	if interval <= 0 || idle <= 0 {
		return func() error { return nil }
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				h.Evict(idle)
			}
		}
	}()

	var once sync.Once
	return func() error {
		once.Do(func() { close(done) })
		<-stopped
		return nil
	}
}

// Len returns the number of trips with position state.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}

// Source returns the tracker.PositionSource of one trip.
func (h *Hub) Source(tripID string) tracker.PositionSource {
	return &source{hub: h, tripID: tripID}
}

type source struct {
	hub    *Hub
	tripID string
}

// CurrentPosition returns the newest sample no older than opts.MaxAge, or
// waits up to opts.Timeout for a fresh one.
func (s *source) CurrentPosition(ctx context.Context, opts tracker.WatchOptions) (domain.TimedPoint, error) {
	ch := s.hub.channel(s.tripID)

	ch.mu.Lock()
	if ch.last != nil && s.acceptable(*ch.last, opts) {
		p := ch.last.TimedPoint
		ch.mu.Unlock()
		return p, nil
	}
	wait := make(chan Sample, 1)
	ch.waiters = append(ch.waiters, wait)
	ch.mu.Unlock()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	for {
		select {
		case sample := <-wait:
			if s.acceptable(sample, opts) {
				return sample.TimedPoint, nil
			}
			ch.mu.Lock()
			ch.waiters = append(ch.waiters, wait)
			ch.mu.Unlock()
		case <-ctx.Done():
			s.dropWaiter(ch, wait)
			return domain.TimedPoint{}, fmt.Errorf("%w: no position for trip %s: %v", domain.ErrTransient, s.tripID, ctx.Err())
		}
	}
}

func (s *source) acceptable(sample Sample, opts tracker.WatchOptions) bool {
	if opts.HighAccuracy && sample.AccuracyM > highAccuracyLimitM {
		return false
	}
	if opts.MaxAge > 0 && s.hub.now().Sub(sample.Time()) > opts.MaxAge {
		return false
	}
	return true
}

func (s *source) dropWaiter(ch *channel, wait chan Sample) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i, w := range ch.waiters {
		if w == wait {
			ch.waiters = append(ch.waiters[:i], ch.waiters[i+1:]...)
			return
		}
	}
}

// Watch registers fn for every subsequent sample of the trip.
func (s *source) Watch(opts tracker.WatchOptions, fn func(domain.TimedPoint)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil watch callback", domain.ErrInvalidArgument)
	}

	s.hub.mu.Lock()
	s.hub.nextID++
	id := s.hub.nextID
	s.hub.mu.Unlock()

	ch := s.hub.channel(s.tripID)
	ch.mu.Lock()
	ch.watchers = append(ch.watchers, &watcher{id: id, opts: opts, fn: fn})
	ch.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ch.mu.Lock()
			defer ch.mu.Unlock()
			for i, w := range ch.watchers {
				if w.id == id {
					ch.watchers = append(ch.watchers[:i], ch.watchers[i+1:]...)
					return
				}
			}
		})
	}, nil
}
