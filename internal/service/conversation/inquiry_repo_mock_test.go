package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

var _ inquiryRepo = &inquiryRepoMock{}

type inquiryRepoMock struct {
	CreateFunc            func(ctx context.Context, inq *domain.Inquiry) error
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error)
	ListMessagesFunc      func(ctx context.Context, inquiryID uuid.UUID) ([]domain.ChatMessage, error)
	ListByParticipantFunc func(ctx context.Context, userID uuid.UUID, role domain.ParticipantRole, limit, offset int) ([]domain.InquirySummary, int, error)
	AppendMessageFunc     func(ctx context.Context, msg domain.ChatMessage) error
	MarkRepliedFunc       func(ctx context.Context, id uuid.UUID, at time.Time) error

	calls struct {
		Create            []struct{ Inq *domain.Inquiry }
		GetByID           []struct{ ID uuid.UUID }
		ListMessages      []struct{ InquiryID uuid.UUID }
		ListByParticipant []struct {
			UserID        uuid.UUID
			Role          domain.ParticipantRole
			Limit, Offset int
		}
		AppendMessage []struct{ Msg domain.ChatMessage }
		MarkReplied   []struct {
			ID uuid.UUID
			At time.Time
		}
	}
	lock sync.RWMutex
}

func (mock *inquiryRepoMock) Create(ctx context.Context, inq *domain.Inquiry) error {
	if mock.CreateFunc == nil {
		panic("inquiryRepoMock.CreateFunc: method is nil but inquiryRepo.Create was just called")
	}
	mock.lock.Lock()
	mock.calls.Create = append(mock.calls.Create, struct{ Inq *domain.Inquiry }{inq})
	mock.lock.Unlock()
	return mock.CreateFunc(ctx, inq)
}

func (mock *inquiryRepoMock) CreateCalls() []struct{ Inq *domain.Inquiry } {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.Create
}

func (mock *inquiryRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	if mock.GetByIDFunc == nil {
		panic("inquiryRepoMock.GetByIDFunc: method is nil but inquiryRepo.GetByID was just called")
	}
	mock.lock.Lock()
	mock.calls.GetByID = append(mock.calls.GetByID, struct{ ID uuid.UUID }{id})
	mock.lock.Unlock()
	return mock.GetByIDFunc(ctx, id)
}

func (mock *inquiryRepoMock) ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]domain.ChatMessage, error) {
	if mock.ListMessagesFunc == nil {
		panic("inquiryRepoMock.ListMessagesFunc: method is nil but inquiryRepo.ListMessages was just called")
	}
	mock.lock.Lock()
	mock.calls.ListMessages = append(mock.calls.ListMessages, struct{ InquiryID uuid.UUID }{inquiryID})
	mock.lock.Unlock()
	return mock.ListMessagesFunc(ctx, inquiryID)
}

func (mock *inquiryRepoMock) ListByParticipant(ctx context.Context, userID uuid.UUID, role domain.ParticipantRole, limit, offset int) ([]domain.InquirySummary, int, error) {
	if mock.ListByParticipantFunc == nil {
		panic("inquiryRepoMock.ListByParticipantFunc: method is nil but inquiryRepo.ListByParticipant was just called")
	}
	mock.lock.Lock()
	mock.calls.ListByParticipant = append(mock.calls.ListByParticipant, struct {
		UserID        uuid.UUID
		Role          domain.ParticipantRole
		Limit, Offset int
	}{userID, role, limit, offset})
	mock.lock.Unlock()
	return mock.ListByParticipantFunc(ctx, userID, role, limit, offset)
}

func (mock *inquiryRepoMock) ListByParticipantCalls() []struct {
	UserID        uuid.UUID
	Role          domain.ParticipantRole
	Limit, Offset int
} {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.ListByParticipant
}

func (mock *inquiryRepoMock) AppendMessage(ctx context.Context, msg domain.ChatMessage) error {
	if mock.AppendMessageFunc == nil {
		panic("inquiryRepoMock.AppendMessageFunc: method is nil but inquiryRepo.AppendMessage was just called")
	}
	mock.lock.Lock()
	mock.calls.AppendMessage = append(mock.calls.AppendMessage, struct{ Msg domain.ChatMessage }{msg})
	mock.lock.Unlock()
	return mock.AppendMessageFunc(ctx, msg)
}

func (mock *inquiryRepoMock) AppendMessageCalls() []struct{ Msg domain.ChatMessage } {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.AppendMessage
}

func (mock *inquiryRepoMock) MarkReplied(ctx context.Context, id uuid.UUID, at time.Time) error {
	if mock.MarkRepliedFunc == nil {
		panic("inquiryRepoMock.MarkRepliedFunc: method is nil but inquiryRepo.MarkReplied was just called")
	}
	mock.lock.Lock()
	mock.calls.MarkReplied = append(mock.calls.MarkReplied, struct {
		ID uuid.UUID
		At time.Time
	}{id, at})
	mock.lock.Unlock()
	return mock.MarkRepliedFunc(ctx, id, at)
}
