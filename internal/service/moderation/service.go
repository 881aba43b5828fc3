// Package moderation applies approval decisions to inquiries.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/notify"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

const maxNoteLength = 500

type inquiryRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error)
	SetApprovalStatus(ctx context.Context, id uuid.UUID, from, to domain.ApprovalStatus, at time.Time) error
}

type eventRepo interface {
	Create(ctx context.Context, e domain.Event) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements moderation operations.
type Service struct {
	inquiries inquiryRepo
	events    eventRepo
	tx        txManager
	notifier  notify.Notifier
	log       *slog.Logger
}

// NewService creates a new moderation service.
func NewService(log *slog.Logger, inquiries inquiryRepo, events eventRepo, tx txManager, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Service{
		inquiries: inquiries,
		events:    events,
		tx:        tx,
		notifier:  notifier,
		log:       log.With("service", "moderation"),
	}
}

// SetApprovalInput holds a moderation decision.
type SetApprovalInput struct {
	InquiryID uuid.UUID
	Status    domain.ApprovalStatus
	Note      string
}

func (i SetApprovalInput) Validate() error {
	var errs []domain.FieldError
	if i.InquiryID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "inquiry_id", Message: "required"})
	}
	if !i.Status.IsTerminal() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "must be approved or rejected"})
	}
	if len(i.Note) > maxNoteLength {
		errs = append(errs, domain.FieldError{Field: "note", Message: fmt.Sprintf("max %d characters", maxNoteLength)})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// SetApprovalStatus moves a pending inquiry to approved or rejected.
// Repeating the current decision succeeds without emitting an event.
func (s *Service) SetApprovalStatus(ctx context.Context, input SetApprovalInput) (*domain.Inquiry, error) {
	if !domain.UserRole(ctxutil.RoleFromCtx(ctx)).CanModerate() {
		return nil, domain.ErrForbidden
	}
	actorID, _ := ctxutil.UserIDFromCtx(ctx)

	if err := input.Validate(); err != nil {
		return nil, err
	}

	inq, err := s.inquiries.GetByID(ctx, input.InquiryID)
	if err != nil {
		return nil, fmt.Errorf("get inquiry: %w", err)
	}

	if inq.ApprovalStatus == input.Status {
		return inq, nil
	}
	from := inq.ApprovalStatus
	if !from.CanTransitionTo(input.Status) {
		return nil, fmt.Errorf("%s -> %s: %w", from, input.Status, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	payload := map[string]any{"from": string(from), "to": string(input.Status)}
	if note := strings.TrimSpace(input.Note); note != "" {
		payload["note"] = note
	}
	event := domain.NewEvent(domain.EventApprovalChanged, inq.ID, actorID, payload)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.inquiries.SetApprovalStatus(ctx, inq.ID, from, input.Status, now); err != nil {
			return fmt.Errorf("set approval status: %w", err)
		}
		if err := s.events.Create(ctx, event); err != nil {
			return fmt.Errorf("record event: %w", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrConcurrentModification) {
		// Lost a race with another moderator; report against the winner's decision.
		current, getErr := s.inquiries.GetByID(ctx, inq.ID)
		if getErr == nil && current.ApprovalStatus == input.Status {
			return current, nil
		}
		return nil, fmt.Errorf("%s -> %s: %w", from, input.Status, domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	inq.ApprovalStatus = input.Status
	inq.UpdatedAt = now

	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.WarnContext(ctx, "notify failed", slog.String("event_id", event.ID.String()), slog.String("error", err.Error()))
	}

	s.log.InfoContext(ctx, "approval changed",
		slog.String("inquiry_id", inq.ID.String()),
		slog.String("from", string(from)),
		slog.String("to", string(input.Status)),
		slog.String("actor_id", actorID.String()),
	)

	return inq, nil
}
