package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

type inquiryRecord struct {
	inquiry  domain.Inquiry
	messages []domain.ChatMessage
}

// InquiryRepo is the in-memory counterpart of the PostgreSQL inquiry repository.
type InquiryRepo struct {
	s *Store
}

// Inquiries returns the inquiry repository backed by s.
func (s *Store) Inquiries() *InquiryRepo {
	return &InquiryRepo{s: s}
}

func (r *InquiryRepo) Create(ctx context.Context, inq *domain.Inquiry) error {
	onUndo, unlock := r.s.write(ctx)
	defer unlock()

	if _, ok := r.s.inquiries[inq.ID]; ok {
		return fmt.Errorf("inquiry %s: %w", inq.ID, domain.ErrAlreadyExists)
	}
	rec := &inquiryRecord{inquiry: *inq, messages: []domain.ChatMessage{}}
	rec.inquiry.ChatLog = nil
	r.s.inquiries[inq.ID] = rec
	onUndo(func() { delete(r.s.inquiries, inq.ID) })
	return nil
}

func (r *InquiryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.s.read(ctx)
	defer unlock()

	rec, ok := r.s.inquiries[id]
	if !ok {
		return nil, fmt.Errorf("inquiry %s: %w", id, domain.ErrNotFound)
	}
	inq := rec.inquiry
	inq.ChatLog = slices.Clone(rec.messages)
	return &inq, nil
}

func (r *InquiryRepo) ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.s.read(ctx)
	defer unlock()

	rec, ok := r.s.inquiries[inquiryID]
	if !ok {
		return []domain.ChatMessage{}, nil
	}
	return slices.Clone(rec.messages), nil
}

func (r *InquiryRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, role domain.ParticipantRole, limit, offset int) ([]domain.InquirySummary, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if !role.IsValid() {
		return nil, 0, domain.NewValidationError("role", fmt.Sprintf("unknown participant role %q", role))
	}
	unlock := r.s.read(ctx)
	defer unlock()

	var all []domain.InquirySummary
	for _, rec := range r.s.inquiries {
		inq := rec.inquiry
		if got, ok := inq.RoleOf(userID); !ok || got != role {
			continue
		}
		inq.ChatLog = rec.messages
		all = append(all, inq.Summarize())
	}

	slices.SortFunc(all, func(a, b domain.InquirySummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	total := len(all)
	if offset >= total {
		return []domain.InquirySummary{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r *InquiryRepo) AppendMessage(ctx context.Context, msg domain.ChatMessage) error {
	onUndo, unlock := r.s.write(ctx)
	defer unlock()

	rec, ok := r.s.inquiries[msg.InquiryID]
	if !ok {
		return fmt.Errorf("inquiry %s: %w", msg.InquiryID, domain.ErrNotFound)
	}
	if msg.Seq != len(rec.messages)+1 {
		return fmt.Errorf("inquiry %s seq %d: %w", msg.InquiryID, msg.Seq, domain.ErrConcurrentModification)
	}

	rec.messages = append(rec.messages, msg)
	onUndo(func() { rec.messages = rec.messages[:len(rec.messages)-1] })
	return nil
}

func (r *InquiryRepo) MarkReplied(ctx context.Context, id uuid.UUID, at time.Time) error {
	onUndo, unlock := r.s.write(ctx)
	defer unlock()

	rec, ok := r.s.inquiries[id]
	if !ok {
		return fmt.Errorf("inquiry %s: %w", id, domain.ErrNotFound)
	}
	prevStatus, prevUpdated := rec.inquiry.Status, rec.inquiry.UpdatedAt
	rec.inquiry.Status = domain.InquiryStatusReplied
	rec.inquiry.UpdatedAt = at
	onUndo(func() {
		rec.inquiry.Status = prevStatus
		rec.inquiry.UpdatedAt = prevUpdated
	})
	return nil
}

func (r *InquiryRepo) SetApprovalStatus(ctx context.Context, id uuid.UUID, from, to domain.ApprovalStatus, at time.Time) error {
	onUndo, unlock := r.s.write(ctx)
	defer unlock()

	rec, ok := r.s.inquiries[id]
	if !ok {
		return fmt.Errorf("inquiry %s: %w", id, domain.ErrNotFound)
	}
	if rec.inquiry.ApprovalStatus != from {
		return fmt.Errorf("inquiry %s: %w", id, domain.ErrConcurrentModification)
	}
	prevStatus, prevUpdated := rec.inquiry.ApprovalStatus, rec.inquiry.UpdatedAt
	rec.inquiry.ApprovalStatus = to
	rec.inquiry.UpdatedAt = at
	onUndo(func() {
		rec.inquiry.ApprovalStatus = prevStatus
		rec.inquiry.UpdatedAt = prevUpdated
	})
	return nil
}
