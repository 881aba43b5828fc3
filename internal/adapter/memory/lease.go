package memory

import (
	"context"
	"sync"
	"time"
)

type leaseEntry struct {
	token     string
	expiresAt time.Time
}

// Locker is a single-process lease.Locker.
type Locker struct {
	mu     sync.Mutex
	leases map[string]leaseEntry
	now    func() time.Time
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{leases: make(map[string]leaseEntry), now: time.Now}
}

func (l *Locker) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.leases[key]; ok && now.Before(cur.expiresAt) {
		return false, nil
	}
	l.leases[key] = leaseEntry{token: token, expiresAt: now.Add(ttl)}
	return true, nil
}

func (l *Locker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.leases[key]; ok && cur.token == token {
		delete(l.leases, key)
	}
	return nil
}
