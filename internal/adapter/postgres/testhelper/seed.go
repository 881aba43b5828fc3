package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

// SeedInquiry inserts an inquiry between two fresh participants with the
// given approval status and returns it.
func SeedInquiry(t *testing.T, pool *pgxpool.Pool, approval domain.ApprovalStatus) domain.Inquiry {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	inq := domain.Inquiry{
		ID:             uuid.New(),
		InitiatorID:    uuid.New(),
		CounterpartID:  uuid.New(),
		Subject:        domain.SubjectRef{Kind: domain.SubjectProduct, ID: uuid.New()},
		InitialMessage: "Is this still available?",
		ApprovalStatus: approval,
		Status:         domain.InquiryStatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO inquiries
		   (id, initiator_id, counterpart_id, subject_kind, subject_id, initial_message,
		    approval_status, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inq.ID, inq.InitiatorID, inq.CounterpartID, string(inq.Subject.Kind), inq.Subject.ID,
		inq.InitialMessage, string(inq.ApprovalStatus), string(inq.Status), inq.CreatedAt, inq.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: seed inquiry: %v", err)
	}

	return inq
}

// SeedMessage appends a raw message row at the next sequence number.
func SeedMessage(t *testing.T, pool *pgxpool.Pool, inquiryID, senderID uuid.UUID, body string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO inquiry_messages (inquiry_id, seq, id, sender_id, body, sent_at)
		 SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, now()
		 FROM inquiry_messages WHERE inquiry_id = $1`,
		inquiryID, uuid.New(), senderID, body,
	)
	if err != nil {
		t.Fatalf("testhelper: seed message: %v", err)
	}
}
