package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/inquiry-backend/internal/adapter/memory"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/lease"
	"github.com/heartmarshall/inquiry-backend/internal/notify"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation/codec"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation/quota"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

type fixture struct {
	svc    *Service
	store  *memory.Store
	events []domain.Event
	mu     sync.Mutex
}

func (f *fixture) published() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

// newFixture wires the service to the in-memory store and lease backend.
func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{store: memory.NewStore()}
	log := slog.New(slog.DiscardHandler)
	leases := lease.NewManager(log, memory.NewLocker(), lease.Options{
		TTL:           5 * time.Second,
		Wait:          10 * time.Second,
		RetryInterval: 2 * time.Millisecond,
	})
	rec := notify.NotifierFunc(func(_ context.Context, e domain.Event) error {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
		return nil
	})
	f.svc = NewService(log, f.store.Inquiries(), f.store.Events(), f.store, leases, codec.New(log, "secret"), rec, opts)
	return f
}

func (f *fixture) setApproval(t *testing.T, id uuid.UUID, to domain.ApprovalStatus) {
	t.Helper()
	err := f.store.Inquiries().SetApprovalStatus(context.Background(), id, domain.ApprovalPending, to, time.Now())
	require.NoError(t, err)
}

// open creates an inquiry between two fresh users and returns it with both contexts.
func (f *fixture) open(t *testing.T) (*domain.Inquiry, context.Context, context.Context) {
	t.Helper()

	initiator, counterpart := uuid.New(), uuid.New()
	ctxA := ctxutil.WithUserID(context.Background(), initiator)
	ctxB := ctxutil.WithUserID(context.Background(), counterpart)

	inq, err := f.svc.CreateInquiry(ctxA, CreateInquiryInput{
		CounterpartID:  counterpart,
		Subject:        domain.SubjectRef{Kind: domain.SubjectProduct, ID: uuid.New()},
		InitialMessage: "  Is this still available?  ",
	})
	require.NoError(t, err)
	return inq, ctxA, ctxB
}

func (f *fixture) fill(t *testing.T, ctx context.Context, id uuid.UUID, n int) {
	t.Helper()
	for i := range n {
		_, err := f.svc.SendMessage(ctx, SendMessageInput{InquiryID: id, Body: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}
}

// ---------------------------------------------------------------------------
// CreateInquiry
// ---------------------------------------------------------------------------

func TestCreateInquiry_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, _, _ := f.open(t)

	assert.Equal(t, domain.ApprovalPending, inq.ApprovalStatus)
	assert.Equal(t, domain.InquiryStatusSent, inq.Status)
	assert.Equal(t, "Is this still available?", inq.InitialMessage)
	assert.Empty(t, inq.ChatLog)

	events := f.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventInquiryCreated, events[0].Type)
	assert.Equal(t, inq.InitiatorID, events[0].ActorID)

	stored, err := f.store.Events().ListByInquiry(context.Background(), inq.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreateInquiry_Validation(t *testing.T) {
	t.Parallel()

	me := uuid.New()
	ctx := ctxutil.WithUserID(context.Background(), me)
	subject := domain.SubjectRef{Kind: domain.SubjectRequirement, ID: uuid.New()}

	tests := []struct {
		name  string
		input CreateInquiryInput
		field string
	}{
		{"missing counterpart", CreateInquiryInput{Subject: subject, InitialMessage: "hi"}, "counterpart_id"},
		{"self inquiry", CreateInquiryInput{CounterpartID: me, Subject: subject, InitialMessage: "hi"}, "counterpart_id"},
		{"bad subject kind", CreateInquiryInput{CounterpartID: uuid.New(), Subject: domain.SubjectRef{Kind: "service", ID: uuid.New()}, InitialMessage: "hi"}, "subject.kind"},
		{"missing subject id", CreateInquiryInput{CounterpartID: uuid.New(), Subject: domain.SubjectRef{Kind: domain.SubjectProduct}, InitialMessage: "hi"}, "subject.id"},
		{"blank message", CreateInquiryInput{CounterpartID: uuid.New(), Subject: subject, InitialMessage: " \n\t"}, "initial_message"},
		{"long message", CreateInquiryInput{CounterpartID: uuid.New(), Subject: subject, InitialMessage: strings.Repeat("x", 11)}, "initial_message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, Options{MaxMessageLength: 10})
			_, err := f.svc.CreateInquiry(ctx, tt.input)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, domain.ErrValidation)
			fields := make([]string, 0, len(verr.Errors))
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestCreateInquiry_Unauthorized(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	_, err := f.svc.CreateInquiry(context.Background(), CreateInquiryInput{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ---------------------------------------------------------------------------
// SendMessage
// ---------------------------------------------------------------------------

func TestSendMessage_PendingThenApprovedScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, ctxB := f.open(t)

	_, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "hello"})
	require.ErrorIs(t, err, domain.ErrNotApproved)

	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	got, err := f.svc.SendMessage(ctxB, SendMessageInput{InquiryID: inq.ID, Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.InquiryStatusReplied, got.Status)
	require.Len(t, got.ChatLog, 1)
	assert.Equal(t, 1, got.ChatLog[0].Seq)
	assert.Equal(t, inq.CounterpartID, got.ChatLog[0].SenderID)
	require.NotNil(t, got.ChatLog[0].Decoded)
	assert.Equal(t, "hello", got.ChatLog[0].Decoded.Text)
	assert.Equal(t, domain.EncodingPlain, got.ChatLog[0].Decoded.Encoding)

	reloaded, err := f.svc.GetConversation(ctxA, inq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InquiryStatusReplied, reloaded.Status)
	assert.Len(t, reloaded.ChatLog, 1)

	events := f.published()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventMessageAppended, events[1].Type)
	assert.Equal(t, inq.InitiatorID.String(), events[1].Payload["recipient_id"])
}

func TestSendMessage_Rejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, _ := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalRejected)

	_, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "hello"})
	assert.ErrorIs(t, err, domain.ErrNotApproved)
}

func TestSendMessage_Authorization(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, _, _ := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	stranger := ctxutil.WithUserID(context.Background(), uuid.New())
	_, err := f.svc.SendMessage(stranger, SendMessageInput{InquiryID: inq.ID, Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.SendMessage(context.Background(), SendMessageInput{InquiryID: inq.ID, Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.SendMessage(stranger, SendMessageInput{InquiryID: uuid.New(), Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendMessage_EmptyAndTooLong(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{MaxMessageLength: 30})
	inq, ctxA, _ := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	_, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: strings.Repeat("x", 31)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, domain.ErrEmptyMessage)

	got, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: " привет "})
	require.NoError(t, err)
	require.Len(t, got.ChatLog, 1)
	assert.Equal(t, "привет", got.ChatLog[0].Body)

	// The limit counts characters after trimming, not bytes.
	got, err = f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "  " + strings.Repeat("ж", 30) + "  "})
	require.NoError(t, err)
	require.Len(t, got.ChatLog, 2)
	assert.Equal(t, strings.Repeat("ж", 30), got.ChatLog[1].Body)
}

func TestSendMessage_PerUserBoundary(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, _ := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	f.fill(t, ctxA, inq.ID, quota.DefaultMaxPerUser)

	_, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "one more"})
	assert.ErrorIs(t, err, domain.ErrPerUserQuotaExceeded)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestSendMessage_TotalBoundary(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{Policy: quota.Policy{MaxPerUser: 3, MaxTotal: 4}})
	inq, ctxA, ctxB := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	f.fill(t, ctxA, inq.ID, 2)
	f.fill(t, ctxB, inq.ID, 2)

	_, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "fifth"})
	assert.ErrorIs(t, err, domain.ErrTotalQuotaExceeded)

	q, err := f.svc.Quota(ctxB, inq.ID)
	require.NoError(t, err)
	assert.False(t, q.CanSend)
	assert.Equal(t, quota.ReasonTotalQuotaExceeded, q.Reason)
	assert.Equal(t, quota.Counts{PerUser: 0, Total: 0}, q.Remaining)
}

func TestSendMessage_SentAtStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, Options{Now: func() time.Time { return frozen }})
	inq, ctxA, ctxB := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	f.fill(t, ctxA, inq.ID, 2)
	got, err := f.svc.SendMessage(ctxB, SendMessageInput{InquiryID: inq.ID, Body: "x"})
	require.NoError(t, err)

	require.Len(t, got.ChatLog, 3)
	assert.Equal(t, frozen, got.ChatLog[0].SentAt)
	assert.Equal(t, frozen.Add(time.Microsecond), got.ChatLog[1].SentAt)
	assert.Equal(t, frozen.Add(2*time.Microsecond), got.ChatLog[2].SentAt)
}

func TestSendMessage_LockTimeout(t *testing.T) {
	t.Parallel()

	inq := &domain.Inquiry{
		ID:             uuid.New(),
		InitiatorID:    uuid.New(),
		CounterpartID:  uuid.New(),
		ApprovalStatus: domain.ApprovalApproved,
	}
	repo := &inquiryRepoMock{
		GetByIDFunc: func(context.Context, uuid.UUID) (*domain.Inquiry, error) { return inq, nil },
	}
	leases := &leaseManagerMock{
		AcquireFunc: func(_ context.Context, key string) (*lease.Lease, error) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrLockTimeout)
		},
	}
	log := slog.New(slog.DiscardHandler)
	svc := NewService(log, repo, nil, nil, leases, codec.New(log, ""), nil, Options{})

	ctx := ctxutil.WithUserID(context.Background(), inq.InitiatorID)
	_, err := svc.SendMessage(ctx, SendMessageInput{InquiryID: inq.ID, Body: "hi"})
	require.ErrorIs(t, err, domain.ErrLockTimeout)
	require.Len(t, leases.AcquireCalls(), 1)
	assert.Equal(t, "inquiry:"+inq.ID.String(), leases.AcquireCalls()[0].Key)
	assert.Empty(t, repo.AppendMessageCalls())
}

func TestSendMessage_LeaseReleasedOnFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{Policy: quota.Policy{MaxPerUser: 1, MaxTotal: 2}})
	inq, ctxA, _ := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)
	f.fill(t, ctxA, inq.ID, 1)

	for range 3 {
		_, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "again"})
		require.ErrorIs(t, err, domain.ErrPerUserQuotaExceeded)
	}
}

func TestSendMessage_AppendConflictRollsBack(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	log := slog.New(slog.DiscardHandler)
	inq := &domain.Inquiry{
		ID:             uuid.New(),
		InitiatorID:    uuid.New(),
		CounterpartID:  uuid.New(),
		Subject:        domain.SubjectRef{Kind: domain.SubjectProduct, ID: uuid.New()},
		ApprovalStatus: domain.ApprovalApproved,
		Status:         domain.InquiryStatusSent,
	}
	require.NoError(t, store.Inquiries().Create(context.Background(), inq))

	backing := store.Inquiries()
	repo := &inquiryRepoMock{
		GetByIDFunc:      backing.GetByID,
		ListMessagesFunc: backing.ListMessages,
		MarkRepliedFunc:  backing.MarkReplied,
		AppendMessageFunc: func(context.Context, domain.ChatMessage) error {
			return domain.ErrConcurrentModification
		},
	}
	leases := lease.NewManager(log, memory.NewLocker(), lease.Options{})
	svc := NewService(log, repo, store.Events(), store, leases, codec.New(log, ""), nil, Options{})

	ctx := ctxutil.WithUserID(context.Background(), inq.InitiatorID)
	_, err := svc.SendMessage(ctx, SendMessageInput{InquiryID: inq.ID, Body: "hi"})
	require.ErrorIs(t, err, domain.ErrConcurrentModification)

	events, err := store.Events().ListByInquiry(context.Background(), inq.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestSendMessage_ConcurrentNoLostUpdates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, ctxB := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	const perSide = 10
	var g errgroup.Group
	for i := range perSide {
		for _, ctx := range []context.Context{ctxA, ctxB} {
			g.Go(func() error {
				_, err := f.svc.SendMessage(ctx, SendMessageInput{InquiryID: inq.ID, Body: fmt.Sprintf("msg %d", i)})
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	got, err := f.svc.GetConversation(ctxA, inq.ID)
	require.NoError(t, err)
	require.Len(t, got.ChatLog, 2*perSide)
	for i, m := range got.ChatLog {
		assert.Equal(t, i+1, m.Seq)
		if i > 0 {
			assert.True(t, m.SentAt.After(got.ChatLog[i-1].SentAt), "sent_at must increase at %d", i)
		}
	}
}

func TestSendMessage_ConcurrentQuotaHolds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, _ := f.open(t)
	f.setApproval(t, inq.ID, domain.ApprovalApproved)

	const attempts = quota.DefaultMaxPerUser + 5
	var (
		g        errgroup.Group
		mu       sync.Mutex
		ok, deny int
	)
	for range attempts {
		g.Go(func() error {
			_, err := f.svc.SendMessage(ctxA, SendMessageInput{InquiryID: inq.ID, Body: "spam"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrPerUserQuotaExceeded):
				deny++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, quota.DefaultMaxPerUser, ok)
	assert.Equal(t, 5, deny)
}

// ---------------------------------------------------------------------------
// GetConversation
// ---------------------------------------------------------------------------

func TestGetConversation_DecodesLegacy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, _ := f.open(t)

	opaque := "U2FsdGVkX1+not-really-ciphertext"
	err := f.store.Inquiries().AppendMessage(context.Background(), domain.ChatMessage{
		ID: uuid.New(), InquiryID: inq.ID, Seq: 1, SenderID: inq.InitiatorID,
		Body: opaque, SentAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err := f.svc.GetConversation(ctxA, inq.ID)
	require.NoError(t, err)
	require.Len(t, got.ChatLog, 1)
	require.NotNil(t, got.ChatLog[0].Decoded)
	assert.Equal(t, opaque, got.ChatLog[0].Decoded.Text)
	assert.True(t, got.ChatLog[0].Decoded.IsLegacyEncrypted())
}

func TestGetConversation_Cancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, _ := f.open(t)

	ctx, cancel := context.WithCancel(ctxA)
	cancel()

	got, err := f.svc.GetConversation(ctx, inq.ID)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetConversation_NotParticipant(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, _, _ := f.open(t)

	_, err := f.svc.GetConversation(ctxutil.WithUserID(context.Background(), uuid.New()), inq.ID)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

// ---------------------------------------------------------------------------
// ListConversations
// ---------------------------------------------------------------------------

func TestListConversations_ByRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	inq, ctxA, ctxB := f.open(t)

	mine, total, err := f.svc.ListConversations(ctxA, ListInput{Role: domain.RoleInitiator})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, inq.ID, mine[0].ID)

	mine, total, err = f.svc.ListConversations(ctxA, ListInput{Role: domain.RoleCounterpart})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, mine)

	theirs, _, err := f.svc.ListConversations(ctxB, ListInput{Role: domain.RoleCounterpart})
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Zero(t, theirs[0].MessageCount)
}

func TestListConversations_DefaultsAndValidation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	repo := &inquiryRepoMock{
		ListByParticipantFunc: func(context.Context, uuid.UUID, domain.ParticipantRole, int, int) ([]domain.InquirySummary, int, error) {
			return []domain.InquirySummary{}, 0, nil
		},
	}
	log := slog.New(slog.DiscardHandler)
	svc := NewService(log, repo, nil, nil, nil, codec.New(log, ""), nil, Options{})
	ctx := ctxutil.WithUserID(context.Background(), userID)

	_, _, err := svc.ListConversations(ctx, ListInput{Role: domain.RoleInitiator})
	require.NoError(t, err)
	calls := repo.ListByParticipantCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, DefaultLimit, calls[0].Limit)
	assert.Equal(t, userID, calls[0].UserID)

	_, _, err = svc.ListConversations(ctx, ListInput{Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.ListConversations(ctx, ListInput{Role: domain.RoleInitiator, Limit: MaxLimit + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.ListConversations(ctx, ListInput{Role: domain.RoleInitiator, Offset: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
