package memory

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

type eventRecord struct {
	event       domain.Event
	publishedAt *time.Time
}

// EventRepo is the in-memory outbox.
type EventRepo struct {
	s *Store
}

// Events returns the outbox repository backed by s.
func (s *Store) Events() *EventRepo {
	return &EventRepo{s: s}
}

func (r *EventRepo) Create(ctx context.Context, e domain.Event) error {
	onUndo, unlock := r.s.write(ctx)
	defer unlock()

	e.Payload = maps.Clone(e.Payload)
	r.s.events = append(r.s.events, eventRecord{event: e})
	onUndo(func() { r.s.events = r.s.events[:len(r.s.events)-1] })
	return nil
}

func (r *EventRepo) ListByInquiry(ctx context.Context, inquiryID uuid.UUID) ([]domain.Event, error) {
	unlock := r.s.read(ctx)
	defer unlock()

	out := []domain.Event{}
	for _, rec := range r.s.events {
		if rec.event.InquiryID == inquiryID {
			out = append(out, rec.event)
		}
	}
	return out, nil
}

func (r *EventRepo) ListUnpublished(ctx context.Context, olderThan time.Time, limit int) ([]domain.Event, error) {
	unlock := r.s.read(ctx)
	defer unlock()

	out := []domain.Event{}
	for _, rec := range r.s.events {
		if len(out) == limit {
			break
		}
		if rec.publishedAt == nil && rec.event.OccurredAt.Before(olderThan) {
			out = append(out, rec.event)
		}
	}
	return out, nil
}

func (r *EventRepo) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, unlock := r.s.write(ctx)
	defer unlock()

	for i := range r.s.events {
		if r.s.events[i].event.ID == id && r.s.events[i].publishedAt == nil {
			t := at
			r.s.events[i].publishedAt = &t
		}
	}
	return nil
}
