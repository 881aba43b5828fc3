package inquiry

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

type inquiryRow struct {
	ID             uuid.UUID `db:"id"`
	InitiatorID    uuid.UUID `db:"initiator_id"`
	CounterpartID  uuid.UUID `db:"counterpart_id"`
	SubjectKind    string    `db:"subject_kind"`
	SubjectID      uuid.UUID `db:"subject_id"`
	InitialMessage string    `db:"initial_message"`
	ApprovalStatus string    `db:"approval_status"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r inquiryRow) toDomain() domain.Inquiry {
	return domain.Inquiry{
		ID:             r.ID,
		InitiatorID:    r.InitiatorID,
		CounterpartID:  r.CounterpartID,
		Subject:        domain.SubjectRef{Kind: domain.SubjectKind(r.SubjectKind), ID: r.SubjectID},
		InitialMessage: r.InitialMessage,
		ApprovalStatus: domain.ApprovalStatus(r.ApprovalStatus),
		Status:         domain.InquiryStatus(r.Status),
		ChatLog:        []domain.ChatMessage{},
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type messageRow struct {
	ID        uuid.UUID `db:"id"`
	InquiryID uuid.UUID `db:"inquiry_id"`
	Seq       int       `db:"seq"`
	SenderID  uuid.UUID `db:"sender_id"`
	Body      string    `db:"body"`
	SentAt    time.Time `db:"sent_at"`
}

func (r messageRow) toDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        r.ID,
		InquiryID: r.InquiryID,
		Seq:       r.Seq,
		SenderID:  r.SenderID,
		Body:      r.Body,
		SentAt:    r.SentAt,
	}
}

// inquiryLogRow is one row of the inquiry LEFT JOIN messages read. An
// inquiry without messages yields a single row with NULL message columns.
type inquiryLogRow struct {
	inquiryRow
	MessageID *uuid.UUID `db:"message_id"`
	Seq       *int       `db:"seq"`
	SenderID  *uuid.UUID `db:"sender_id"`
	Body      *string    `db:"body"`
	SentAt    *time.Time `db:"sent_at"`
}

func (r inquiryLogRow) message() (domain.ChatMessage, bool) {
	if r.MessageID == nil || r.Seq == nil || r.SenderID == nil || r.Body == nil || r.SentAt == nil {
		return domain.ChatMessage{}, false
	}
	return domain.ChatMessage{
		ID:        *r.MessageID,
		InquiryID: r.ID,
		Seq:       *r.Seq,
		SenderID:  *r.SenderID,
		Body:      *r.Body,
		SentAt:    *r.SentAt,
	}, true
}

type summaryRow struct {
	inquiryRow
	MessageCount  int        `db:"message_count"`
	LastMessageAt *time.Time `db:"last_message_at"`
}

func (r summaryRow) toDomain() domain.InquirySummary {
	return domain.InquirySummary{
		ID:             r.ID,
		InitiatorID:    r.InitiatorID,
		CounterpartID:  r.CounterpartID,
		Subject:        domain.SubjectRef{Kind: domain.SubjectKind(r.SubjectKind), ID: r.SubjectID},
		ApprovalStatus: domain.ApprovalStatus(r.ApprovalStatus),
		Status:         domain.InquiryStatus(r.Status),
		MessageCount:   r.MessageCount,
		LastMessageAt:  r.LastMessageAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
