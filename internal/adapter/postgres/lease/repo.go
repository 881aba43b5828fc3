// Package lease stores conversation leases in PostgreSQL.
package lease

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	postgres "github.com/heartmarshall/inquiry-backend/internal/adapter/postgres"
)

const tableLeases = "inquiry_leases"

// acquireSQL takes the lease if it is free or expired. Expiry is judged by
// the database clock so that app servers with skewed clocks agree.
const acquireSQL = `
INSERT INTO inquiry_leases (key, token, expires_at)
VALUES ($1, $2, now() + ($3 * interval '1 millisecond'))
ON CONFLICT (key) DO UPDATE
    SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
    WHERE inquiry_leases.expires_at <= now()`

// Repo implements lease.Locker on top of the inquiry_leases table.
type Repo struct {
	db postgres.Querier
}

// New creates a new lease repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// TryAcquire reports whether the lease for key was taken with token.
func (r *Repo) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	tag, err := r.db.Exec(ctx, acquireSQL, key, token, ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release deletes the lease only while token still owns it.
func (r *Repo) Release(ctx context.Context, key, token string) error {
	query, args, err := postgres.Builder.
		Delete(tableLeases).
		Where(sq.Eq{"key": key, "token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release lease: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes leases that expired before now. Returns the number removed.
func (r *Repo) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM inquiry_leases WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purge expired leases: %w", err)
	}
	return tag.RowsAffected(), nil
}
