// Package notify hands inquiry events to the notification collaborator.
// Delivery failures never reach the caller of a core mutation.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

// Notifier delivers one event.
type Notifier interface {
	Notify(ctx context.Context, e domain.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e domain.Event) error

func (f NotifierFunc) Notify(ctx context.Context, e domain.Event) error { return f(ctx, e) }

// Nop drops every event.
var Nop Notifier = NotifierFunc(func(context.Context, domain.Event) error { return nil })

// LogNotifier writes events to a structured log.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("component", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, e domain.Event) error {
	n.log.InfoContext(ctx, "inquiry event",
		slog.String("event_id", e.ID.String()),
		slog.String("type", string(e.Type)),
		slog.String("inquiry_id", e.InquiryID.String()),
		slog.Any("payload", e.Payload),
	)
	return nil
}

// PublishMarker records that an outbox event was delivered.
type PublishMarker interface {
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

// WithConfirmation marks the outbox row as published once next succeeds.
func WithConfirmation(next Notifier, marker PublishMarker) Notifier {
	return NotifierFunc(func(ctx context.Context, e domain.Event) error {
		if err := next.Notify(ctx, e); err != nil {
			return err
		}
		return marker.MarkPublished(ctx, e.ID, time.Now().UTC())
	})
}
