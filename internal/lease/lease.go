// Package lease provides a service-held, auto-expiring mutual exclusion
// token scoped to one conversation.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

const (
	DefaultTTL           = 30 * time.Second
	DefaultWait          = 5 * time.Second
	DefaultRetryInterval = 50 * time.Millisecond
)

// Locker is a storage backend for leases. TryAcquire must be atomic: it
// succeeds only if no unexpired lease exists for key. Release removes the
// lease only when token still matches.
type Locker interface {
	TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// Options tunes a Manager. Zero fields fall back to the defaults.
type Options struct {
	TTL           time.Duration
	Wait          time.Duration
	RetryInterval time.Duration
}

// Manager hands out leases from a Locker.
type Manager struct {
	locker Locker
	opts   Options
	log    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(log *slog.Logger, locker Locker, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Wait <= 0 {
		opts.Wait = DefaultWait
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	return &Manager{
		locker: locker,
		opts:   opts,
		log:    log.With("component", "lease"),
	}
}

// Lease is a held lock. Call Release exactly once.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time

	locker Locker
}

// InquiryKey is the lease key of one conversation.
func InquiryKey(id uuid.UUID) string {
	return "inquiry:" + id.String()
}

var errBusy = errors.New("lease held by another owner")

// Acquire tries to take the lease for key, retrying until the configured
// wait elapses. It returns domain.ErrLockTimeout when the lease stays busy.
func (m *Manager) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := uuid.NewString()

	backoff := retry.NewExponential(m.opts.RetryInterval)
	backoff = retry.WithCappedDuration(4*m.opts.RetryInterval, backoff)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxDuration(m.opts.Wait, backoff)

	var acquiredAt time.Time
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		acquiredAt = time.Now()
		ok, err := m.locker.TryAcquire(ctx, key, token, m.opts.TTL)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errBusy)
		}
		return nil
	})

	switch {
	case err == nil:
		return &Lease{
			Key:       key,
			Token:     token,
			ExpiresAt: acquiredAt.Add(m.opts.TTL),
			locker:    m.locker,
		}, nil
	case errors.Is(err, errBusy):
		m.log.InfoContext(ctx, "lease wait exceeded", slog.String("key", key), slog.Duration("wait", m.opts.Wait))
		return nil, fmt.Errorf("%s: %w", key, domain.ErrLockTimeout)
	default:
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
}

// Release gives the lease back. Releasing a lease that already expired and
// was taken by someone else is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.locker.Release(ctx, l.Key, l.Token); err != nil {
		return fmt.Errorf("release lease %s: %w", l.Key, err)
	}
	return nil
}

// Expired reports whether the lease TTL has elapsed as of now.
func (l *Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
