// Package event implements the inquiry event outbox using PostgreSQL.
// Rows are append-only except for the published_at marker.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/inquiry-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

const tableEvents = "inquiry_events"

var eventColumns = []string{"id", "type", "inquiry_id", "actor_id", "payload", "occurred_at"}

// Repo provides outbox persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new event repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Create appends an event. Call it inside the transaction of the mutation it describes.
func (r *Repo) Create(ctx context.Context, e domain.Event) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("inquiry_event marshal payload: %w", err)
	}

	query, args, err := postgres.Builder.
		Insert(tableEvents).
		Columns(eventColumns...).
		Values(e.ID, string(e.Type), e.InquiryID, nullableUUID(e.ActorID), payload, e.OccurredAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert event: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "inquiry_event", e.ID)
	}
	return nil
}

// ListByInquiry returns the events of an inquiry in occurrence order.
func (r *Repo) ListByInquiry(ctx context.Context, inquiryID uuid.UUID) ([]domain.Event, error) {
	return r.list(ctx, postgres.Builder.
		Select(eventColumns...).
		From(tableEvents).
		Where(sq.Eq{"inquiry_id": inquiryID}).
		OrderBy("occurred_at ASC", "id"))
}

// ListUnpublished returns up to limit events that no notifier has confirmed
// and that occurred before olderThan.
func (r *Repo) ListUnpublished(ctx context.Context, olderThan time.Time, limit int) ([]domain.Event, error) {
	return r.list(ctx, postgres.Builder.
		Select(eventColumns...).
		From(tableEvents).
		Where(sq.Eq{"published_at": nil}).
		Where(sq.Lt{"occurred_at": olderThan}).
		OrderBy("occurred_at ASC").
		Limit(uint64(limit)))
}

// MarkPublished records that the notifier accepted the event. Marking twice is harmless.
func (r *Repo) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := postgres.Builder.
		Update(tableEvents).
		Set("published_at", at).
		Where(sq.Eq{"id": id, "published_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark published: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "inquiry_event", id)
	}
	return nil
}

func (r *Repo) list(ctx context.Context, b sq.SelectBuilder) ([]domain.Event, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events: %w", err)
	}

	var rows []eventRow
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list inquiry_events: %w", err)
	}

	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type eventRow struct {
	ID         uuid.UUID  `db:"id"`
	Type       string     `db:"type"`
	InquiryID  uuid.UUID  `db:"inquiry_id"`
	ActorID    *uuid.UUID `db:"actor_id"`
	Payload    []byte     `db:"payload"`
	OccurredAt time.Time  `db:"occurred_at"`
}

func (r eventRow) toDomain() (domain.Event, error) {
	e := domain.Event{
		ID:         r.ID,
		Type:       domain.EventType(r.Type),
		InquiryID:  r.InquiryID,
		OccurredAt: r.OccurredAt,
		Payload:    map[string]any{},
	}
	if r.ActorID != nil {
		e.ActorID = *r.ActorID
	}
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &e.Payload); err != nil {
			return domain.Event{}, fmt.Errorf("inquiry_event %s unmarshal payload: %w", r.ID, err)
		}
	}
	return e, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
