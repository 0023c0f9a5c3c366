package service

import (
	"context"
	"sync"
	"time"

	"tripmeter/internal/domain"
	"tripmeter/internal/geo"
)

// RouteWatcher binds a pickup/dropoff pin pair to route estimates. Every pin
// change delivers the straight-line estimate at once and resolves the road
// route after the pair has been stable for the quiet period. Only the newest
// pair's result is delivered, and nothing is delivered after Close.
//
// onEstimate runs on the watcher's goroutines and must not call back into
// the watcher.
type RouteWatcher struct {
	resolver   *RouteResolver
	quiet      time.Duration
	onEstimate func(domain.RouteEstimate)

	mu         sync.Mutex
	pickup     *domain.GeoPoint
	dropoff    *domain.GeoPoint
	generation uint64
	timer      *time.Timer
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc

	deliverMu sync.Mutex
}

// NewRouteWatcher creates a watcher that reports estimates to onEstimate.
func NewRouteWatcher(resolver *RouteResolver, quiet time.Duration, onEstimate func(domain.RouteEstimate)) (*RouteWatcher, error) {
	if onEstimate == nil {
		return nil, ErrNilCallback
	}
	if quiet <= 0 {
		quiet = DefaultDebounceWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RouteWatcher{
		resolver:   resolver,
		quiet:      quiet,
		onEstimate: onEstimate,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// SetPickup moves the pickup pin.
func (w *RouteWatcher) SetPickup(p domain.GeoPoint) error {
	return w.move(p, true)
}

// SetDropoff moves the dropoff pin.
func (w *RouteWatcher) SetDropoff(p domain.GeoPoint) error {
	return w.move(p, false)
}

func (w *RouteWatcher) move(p domain.GeoPoint, pickup bool) error {
	if err := geo.Validate(p); err != nil {
		return err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if pickup {
		w.pickup = &p
	} else {
		w.dropoff = &p
	}
	w.generation++
	gen := w.generation

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.pickup == nil || w.dropoff == nil {
		w.mu.Unlock()
		return nil
	}
	from, to := *w.pickup, *w.dropoff
	w.timer = time.AfterFunc(w.quiet, func() { w.resolve(gen, from, to) })
	w.mu.Unlock()

	est, err := w.resolver.Provisional(from, to)
	if err != nil {
		return err
	}
	w.deliver(gen, est)
	return nil
}

func (w *RouteWatcher) resolve(gen uint64, from, to domain.GeoPoint) {
	if !w.current(gen) {
		return
	}
	est, err := w.resolver.Resolve(w.ctx, from, to)
	if err != nil {
		return
	}
	w.deliver(gen, est)
}

func (w *RouteWatcher) current(gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && gen == w.generation
}

// deliver hands est to the callback if gen is still the newest pair.
func (w *RouteWatcher) deliver(gen uint64, est domain.RouteEstimate) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if !w.current(gen) {
		return
	}
	w.onEstimate(est)
}

// Close stops pending resolutions; results still in flight are discarded.
func (w *RouteWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.cancel()
}
