package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a notification-worthy change, persisted to the outbox and then
// handed to the notifier.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	InquiryID  uuid.UUID
	ActorID    uuid.UUID
	Payload    map[string]any
	OccurredAt time.Time
}

// NewEvent stamps a fresh event id and time.
func NewEvent(typ EventType, inquiryID, actorID uuid.UUID, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		InquiryID:  inquiryID,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}
