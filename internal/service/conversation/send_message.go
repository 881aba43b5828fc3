package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/lease"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

// SendMessage appends a chat message from the caller to an approved inquiry.
//
// Appends to the same inquiry are serialized by a lease. The log is re-read
// under the lease so the quota check always sees the latest messages.
func (s *Service) SendMessage(ctx context.Context, input SendMessageInput) (*domain.Inquiry, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	inq, err := s.loadAuthorized(ctx, input.InquiryID, userID)
	if err != nil {
		return nil, err
	}
	if inq.ApprovalStatus != domain.ApprovalApproved {
		return nil, domain.ErrNotApproved
	}

	body, err := input.checkBody(s.maxLen)
	if err != nil {
		return nil, err
	}

	l, err := s.leases.Acquire(ctx, lease.InquiryKey(inq.ID))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.WarnContext(ctx, "release lease", slog.String("error", err.Error()))
		}
	}()

	chatLog, err := s.inquiries.ListMessages(ctx, inq.ID)
	if err != nil {
		return nil, fmt.Errorf("reload messages: %w", err)
	}
	inq.ChatLog = chatLog

	if decision := s.policy.CanSend(chatLog, userID, inq.ApprovalStatus); !decision.Allowed {
		return nil, decision.Err()
	}

	msg := domain.ChatMessage{
		ID:        uuid.New(),
		InquiryID: inq.ID,
		Seq:       inq.NextSeq(),
		SenderID:  userID,
		Body:      s.codec.Encode(body),
		SentAt:    domain.NextSentAt(s.now(), inq.LastMessage()),
	}
	event := domain.NewEvent(domain.EventMessageAppended, inq.ID, userID, map[string]any{
		"message_id":   msg.ID.String(),
		"seq":          msg.Seq,
		"recipient_id": inq.OtherParty(userID).String(),
	})

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.inquiries.AppendMessage(ctx, msg); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		if err := s.inquiries.MarkReplied(ctx, inq.ID, msg.SentAt); err != nil {
			return fmt.Errorf("mark replied: %w", err)
		}
		if err := s.events.Create(ctx, event); err != nil {
			return fmt.Errorf("record event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inq.ChatLog = append(inq.ChatLog, msg)
	inq.Status = domain.InquiryStatusReplied
	inq.UpdatedAt = msg.SentAt

	s.publish(ctx, event)

	s.log.InfoContext(ctx, "message appended",
		slog.String("inquiry_id", inq.ID.String()),
		slog.String("sender_id", userID.String()),
		slog.Int("seq", msg.Seq),
	)

	s.decode(inq)
	return inq, nil
}
