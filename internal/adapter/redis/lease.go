package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaseClient is the subset of *goredis.Client a LeaseStore needs.
type LeaseClient interface {
	goredis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
}

// LeaseStore implements lease.Locker with SET NX PX.
type LeaseStore struct {
	client LeaseClient
	prefix string
}

// NewLeaseStore creates a LeaseStore. prefix namespaces the keys, e.g. "lease:".
func NewLeaseStore(client LeaseClient, prefix string) *LeaseStore {
	return &LeaseStore{client: client, prefix: prefix}
}

func (s *LeaseStore) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire %s: %w", key, err)
	}
	return ok, nil
}

func (s *LeaseStore) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis: release %s: %w", key, err)
	}
	return nil
}
