package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

// Outbox is the read side of the event outbox.
type Outbox interface {
	PublishMarker
	ListUnpublished(ctx context.Context, olderThan time.Time, limit int) ([]domain.Event, error)
}

// Relay re-delivers outbox events that were never confirmed. Delivery is
// at-least-once: an event may reach the notifier more than once.
type Relay struct {
	outbox   Outbox
	notifier Notifier
	minAge   time.Duration
	batch    int
	log      *slog.Logger
}

// NewRelay creates a Relay. Events younger than minAge are skipped so the
// direct delivery path gets a chance first.
func NewRelay(log *slog.Logger, outbox Outbox, notifier Notifier, minAge time.Duration, batch int) *Relay {
	if batch <= 0 {
		batch = 100
	}
	return &Relay{
		outbox:   outbox,
		notifier: notifier,
		minAge:   minAge,
		batch:    batch,
		log:      log.With("component", "notify_relay"),
	}
}

// RunOnce delivers one batch and returns how many events were confirmed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.outbox.ListUnpublished(ctx, time.Now().Add(-r.minAge), r.batch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, e := range events {
		if err := r.notifier.Notify(ctx, e); err != nil {
			r.log.WarnContext(ctx, "relay delivery failed",
				slog.String("event_id", e.ID.String()), slog.String("error", err.Error()))
			continue
		}
		if err := r.outbox.MarkPublished(ctx, e.ID, time.Now().UTC()); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

// Run calls RunOnce every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil && ctx.Err() == nil {
				r.log.ErrorContext(ctx, "relay batch failed", slog.String("error", err.Error()))
			}
			if n > 0 {
				r.log.InfoContext(ctx, "relay delivered events", slog.Int("count", n))
			}
		}
	}
}
