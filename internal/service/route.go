package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tripmeter/internal/domain"
	"tripmeter/internal/geo"
	"tripmeter/internal/maps"
)

const (
	// DefaultRouteTimeout bounds one road-network request.
	DefaultRouteTimeout = 5 * time.Second

	// DefaultDebounceWindow is the quiet period before a pin pair is resolved
	// and the lifetime of a cached resolution.
	DefaultDebounceWindow = 800 * time.Millisecond
)

// RouteCache keeps resolved routes under their rounded endpoint key.
type RouteCache interface {
	Get(ctx context.Context, key string) (domain.RouteEstimate, bool, error)
	Set(ctx context.Context, key string, est domain.RouteEstimate) error
}

// RouteResolver turns two endpoints into a RouteEstimate, preferring the road
// network and falling back to the straight line.
type RouteResolver struct {
	router  maps.Router
	cache   RouteCache
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewRouteResolver creates a RouteResolver. router may be nil, in which case
// every resolution is straight-line.
func NewRouteResolver(router maps.Router, cache RouteCache, timeout time.Duration, logger *slog.Logger) *RouteResolver {
	if timeout <= 0 {
		timeout = DefaultRouteTimeout
	}
	if cache == nil {
		cache = NewMemoryRouteCache(DefaultDebounceWindow)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteResolver{
		router:  router,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
}

// Provisional returns the straight-line estimate without any I/O.
func (r *RouteResolver) Provisional(from, to domain.GeoPoint) (domain.RouteEstimate, error) {
	d, err := geo.DistanceKm(from, to)
	if err != nil {
		return domain.RouteEstimate{}, err
	}
	return domain.RouteEstimate{
		Points:     []domain.GeoPoint{from, to},
		DistanceKm: d,
		Source:     domain.RouteSourceStraightLine,
	}, nil
}

// Resolve returns the network route between from and to. Routing failures
// yield the straight-line estimate with an Advisory; only invalid
// coordinates are returned as errors.
func (r *RouteResolver) Resolve(ctx context.Context, from, to domain.GeoPoint) (domain.RouteEstimate, error) {
	provisional, err := r.Provisional(from, to)
	if err != nil {
		return domain.RouteEstimate{}, err
	}

	key := geo.PairKey(from, to)
	if est, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("route cache read failed", "key", key, "error", err)
	} else if ok {
		return est, nil
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		est := r.fetch(ctx, from, to, provisional)
		if err := r.cache.Set(context.WithoutCancel(ctx), key, est); err != nil {
			r.logger.Warn("route cache write failed", "key", key, "error", err)
		}
		return est, nil
	})
	return v.(domain.RouteEstimate), nil
}

func (r *RouteResolver) fetch(ctx context.Context, from, to domain.GeoPoint, fallback domain.RouteEstimate) domain.RouteEstimate {
	if r.router == nil {
		fallback.Advisory = "road routing is not configured"
		return fallback
	}

	// Callers sharing this request must not lose it to one caller's cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	path, err := r.router.Route(ctx, from, to)
	if err == nil {
		err = validatePath(path)
	}
	if err != nil {
		r.logger.Warn("road routing degraded, using straight line",
			"from", from,
			"to", to,
			"error", err,
		)
		fallback.Advisory = fmt.Sprintf("%v: road route unavailable, distance is a straight-line estimate", domain.ErrDegraded)
		return fallback
	}

	return domain.RouteEstimate{
		Points:     path.Points,
		DistanceKm: path.DistanceMeters / 1000,
		Source:     domain.RouteSourceNetwork,
	}
}

func validatePath(p *maps.Path) error {
	if p == nil || len(p.Points) < 2 {
		return maps.ErrNoRoute
	}
	if p.DistanceMeters < 0 {
		return fmt.Errorf("negative route distance %v", p.DistanceMeters)
	}
	for _, pt := range p.Points {
		if !pt.Valid() {
			return fmt.Errorf("route point (%v, %v) out of range", pt.Lat, pt.Lng)
		}
	}
	return nil
}

type memoryRouteEntry struct {
	est     domain.RouteEstimate
	expires time.Time
}

// MemoryRouteCache is an in-process RouteCache with a fixed entry lifetime.
type MemoryRouteCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryRouteEntry
	now     func() time.Time
}

// NewMemoryRouteCache creates a MemoryRouteCache whose entries live for ttl.
func NewMemoryRouteCache(ttl time.Duration) *MemoryRouteCache {
	return &MemoryRouteCache{
		ttl:     ttl,
		entries: make(map[string]memoryRouteEntry),
		now:     time.Now,
	}
}

func (c *MemoryRouteCache) Get(_ context.Context, key string) (domain.RouteEstimate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return domain.RouteEstimate{}, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return domain.RouteEstimate{}, false, nil
	}
	return e.est, true, nil
}

func (c *MemoryRouteCache) Set(_ context.Context, key string, est domain.RouteEstimate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryRouteEntry{est: est, expires: now.Add(c.ttl)}
	return nil
}
