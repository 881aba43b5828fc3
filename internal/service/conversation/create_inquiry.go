package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

// CreateInquiry opens a pending inquiry from the caller to a counterpart.
func (s *Service) CreateInquiry(ctx context.Context, input CreateInquiryInput) (*domain.Inquiry, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(userID, s.maxLen); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inq := &domain.Inquiry{
		ID:             uuid.New(),
		InitiatorID:    userID,
		CounterpartID:  input.CounterpartID,
		Subject:        input.Subject,
		InitialMessage: s.codec.Encode(strings.TrimSpace(input.InitialMessage)),
		ApprovalStatus: domain.ApprovalPending,
		Status:         domain.InquiryStatusSent,
		ChatLog:        []domain.ChatMessage{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	event := domain.NewEvent(domain.EventInquiryCreated, inq.ID, userID, map[string]any{
		"counterpart_id": inq.CounterpartID.String(),
		"subject_kind":   string(inq.Subject.Kind),
		"subject_id":     inq.Subject.ID.String(),
	})

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.inquiries.Create(ctx, inq); err != nil {
			return fmt.Errorf("create inquiry: %w", err)
		}
		if err := s.events.Create(ctx, event); err != nil {
			return fmt.Errorf("record event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)

	s.log.InfoContext(ctx, "inquiry created",
		slog.String("inquiry_id", inq.ID.String()),
		slog.String("initiator_id", userID.String()),
		slog.String("counterpart_id", inq.CounterpartID.String()),
		slog.String("subject_kind", string(inq.Subject.Kind)),
	)

	return inq, nil
}
