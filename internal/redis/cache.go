package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tripmeter/internal/domain"
)

// CacheStore handles live trip snapshots and resolved routes in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// SnapshotCacheTTL outlives a few persistence intervals so a crashed
// tracker's last state expires on its own.
const SnapshotCacheTTL = 2 * time.Minute

// Key prefixes
const (
	snapshotCachePrefix = "cache:trip:snapshot:"
	routeCachePrefix    = "cache:route:"
)

// CachedSnapshot is the live progress of a trip as seen by readers.
type CachedSnapshot struct {
	TripID     string       `json:"trip_id"`
	DistanceKm float64      `json:"distance_km"`
	Fare       domain.Money `json:"fare"`
	Lat        float64      `json:"lat"`
	Lng        float64      `json:"lng"`
	Final      bool         `json:"final"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// GetTripSnapshot retrieves the latest snapshot of a trip. A miss returns nil.
func (s *CacheStore) GetTripSnapshot(ctx context.Context, tripID string) (*CachedSnapshot, error) {
	data, err := s.client.Get(ctx, snapshotCachePrefix+tripID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var snap CachedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetTripSnapshot stores a trip snapshot.
func (s *CacheStore) SetTripSnapshot(ctx context.Context, snapshot domain.TripSnapshot) error {
	data, err := json.Marshal(CachedSnapshot{
		TripID:     snapshot.TripID,
		DistanceKm: snapshot.DistanceKm,
		Fare:       snapshot.Fare,
		Lat:        snapshot.Position.Lat,
		Lng:        snapshot.Position.Lng,
		Final:      snapshot.Final,
		RecordedAt: snapshot.RecordedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, snapshotCachePrefix+snapshot.TripID, data, SnapshotCacheTTL).Err()
}

// InvalidateTripSnapshot removes a trip snapshot from cache.
func (s *CacheStore) InvalidateTripSnapshot(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, snapshotCachePrefix+tripID).Err()
}

// RouteCache stores resolved routes under their rounded endpoint key for a
// fixed window.
type RouteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRouteCache creates a RouteCache whose entries live for ttl.
func NewRouteCache(client *redis.Client, ttl time.Duration) *RouteCache {
	return &RouteCache{client: client, ttl: ttl}
}

// Get returns the cached route for key.
func (c *RouteCache) Get(ctx context.Context, key string) (domain.RouteEstimate, bool, error) {
	data, err := c.client.Get(ctx, routeCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RouteEstimate{}, false, nil
		}
		return domain.RouteEstimate{}, false, err
	}

	var est domain.RouteEstimate
	if err := json.Unmarshal(data, &est); err != nil {
		return domain.RouteEstimate{}, false, err
	}
	return est, true, nil
}

// Set stores est under key.
func (c *RouteCache) Set(ctx context.Context, key string, est domain.RouteEstimate) error {
	data, err := json.Marshal(est)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, routeCachePrefix+key, data, c.ttl).Err()
}
