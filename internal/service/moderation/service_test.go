package moderation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inquiry-backend/internal/adapter/memory"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/notify"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

func newTestService(t *testing.T, n notify.Notifier) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(slog.New(slog.DiscardHandler), store.Inquiries(), store.Events(), store, n), store
}

func seedPending(t *testing.T, store *memory.Store) *domain.Inquiry {
	t.Helper()
	now := time.Now().UTC()
	inq := &domain.Inquiry{
		ID:             uuid.New(),
		InitiatorID:    uuid.New(),
		CounterpartID:  uuid.New(),
		Subject:        domain.SubjectRef{Kind: domain.SubjectRequirement, ID: uuid.New()},
		InitialMessage: "hello",
		ApprovalStatus: domain.ApprovalPending,
		Status:         domain.InquiryStatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.Inquiries().Create(context.Background(), inq))
	return inq
}

func moderatorCtx() context.Context {
	return ctxutil.WithIdentity(context.Background(), uuid.New(), string(domain.UserRoleModerator))
}

func TestSetApprovalStatus_Approve(t *testing.T) {
	t.Parallel()

	var got []domain.Event
	svc, store := newTestService(t, notify.NotifierFunc(func(_ context.Context, e domain.Event) error {
		got = append(got, e)
		return nil
	}))
	inq := seedPending(t, store)

	res, err := svc.SetApprovalStatus(moderatorCtx(), SetApprovalInput{InquiryID: inq.ID, Status: domain.ApprovalApproved, Note: " ok "})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, res.ApprovalStatus)

	stored, err := store.Inquiries().GetByID(context.Background(), inq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, stored.ApprovalStatus)

	require.Len(t, got, 1)
	assert.Equal(t, domain.EventApprovalChanged, got[0].Type)
	assert.Equal(t, "pending", got[0].Payload["from"])
	assert.Equal(t, "approved", got[0].Payload["to"])
	assert.Equal(t, "ok", got[0].Payload["note"])
}

func TestSetApprovalStatus_Idempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	svc, store := newTestService(t, notify.NotifierFunc(func(context.Context, domain.Event) error {
		calls++
		return nil
	}))
	inq := seedPending(t, store)
	ctx := moderatorCtx()

	_, err := svc.SetApprovalStatus(ctx, SetApprovalInput{InquiryID: inq.ID, Status: domain.ApprovalRejected})
	require.NoError(t, err)
	_, err = svc.SetApprovalStatus(ctx, SetApprovalInput{InquiryID: inq.ID, Status: domain.ApprovalRejected})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	events, err := store.Events().ListByInquiry(context.Background(), inq.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSetApprovalStatus_TerminalStates(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, nil)
	inq := seedPending(t, store)
	ctx := moderatorCtx()

	_, err := svc.SetApprovalStatus(ctx, SetApprovalInput{InquiryID: inq.ID, Status: domain.ApprovalRejected})
	require.NoError(t, err)

	_, err = svc.SetApprovalStatus(ctx, SetApprovalInput{InquiryID: inq.ID, Status: domain.ApprovalApproved})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSetApprovalStatus_Forbidden(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, nil)
	inq := seedPending(t, store)

	for _, ctx := range []context.Context{
		context.Background(),
		ctxutil.WithIdentity(context.Background(), inq.CounterpartID, string(domain.UserRoleUser)),
	} {
		_, err := svc.SetApprovalStatus(ctx, SetApprovalInput{InquiryID: inq.ID, Status: domain.ApprovalApproved})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	}
}

func TestSetApprovalStatus_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	ctx := ctxutil.WithIdentity(context.Background(), uuid.New(), string(domain.UserRoleAdmin))

	_, err := svc.SetApprovalStatus(ctx, SetApprovalInput{InquiryID: uuid.New(), Status: domain.ApprovalPending})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SetApprovalStatus(ctx, SetApprovalInput{Status: domain.ApprovalApproved})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SetApprovalStatus(ctx, SetApprovalInput{InquiryID: uuid.New(), Status: domain.ApprovalApproved})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetApprovalStatus_NotifierFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, notify.NotifierFunc(func(context.Context, domain.Event) error {
		return errors.New("broker down")
	}))
	inq := seedPending(t, store)

	res, err := svc.SetApprovalStatus(moderatorCtx(), SetApprovalInput{InquiryID: inq.ID, Status: domain.ApprovalApproved})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, res.ApprovalStatus)
}
