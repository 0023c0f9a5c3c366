package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// releaseScript deletes the lock only if it still belongs to owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func tripLockKey(tripID string) string {
	return fmt.Sprintf("lock:trip:%s", tripID)
}

// AcquireTripLock claims the right to track tripID for owner.
// Returns true if the lock was acquired, false if another owner holds it.
func (s *LockStore) AcquireTripLock(ctx context.Context, tripID, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, tripLockKey(tripID), owner, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseTripLock releases the lock if owner still holds it.
func (s *LockStore) ReleaseTripLock(ctx context.Context, tripID, owner string) error {
	return releaseScript.Run(ctx, s.client, []string{tripLockKey(tripID)}, owner).Err()
}
