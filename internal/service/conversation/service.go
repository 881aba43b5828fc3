// Package conversation orchestrates inquiry conversations: authorization,
// approval gating, quota enforcement and serialized appends.
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/lease"
	"github.com/heartmarshall/inquiry-backend/internal/notify"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation/codec"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation/quota"
)

const (
	DefaultMaxMessageLength = 4000
	DefaultLimit            = 20
	MaxLimit                = 100
)

type inquiryRepo interface {
	Create(ctx context.Context, inq *domain.Inquiry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error)
	ListMessages(ctx context.Context, inquiryID uuid.UUID) ([]domain.ChatMessage, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, role domain.ParticipantRole, limit, offset int) ([]domain.InquirySummary, int, error)
	AppendMessage(ctx context.Context, msg domain.ChatMessage) error
	MarkReplied(ctx context.Context, id uuid.UUID, at time.Time) error
}

type eventRepo interface {
	Create(ctx context.Context, e domain.Event) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type leaseManager interface {
	Acquire(ctx context.Context, key string) (*lease.Lease, error)
}

// Options carries the tunable policy of the service.
type Options struct {
	Policy           quota.Policy
	MaxMessageLength int
	Now              func() time.Time
}

// Service implements the inquiry conversation operations.
type Service struct {
	inquiries inquiryRepo
	events    eventRepo
	tx        txManager
	leases    leaseManager
	codec     *codec.Codec
	notifier  notify.Notifier
	policy    quota.Policy
	maxLen    int
	now       func() time.Time
	log       *slog.Logger
}

// NewService creates a new conversation service.
func NewService(
	log *slog.Logger,
	inquiries inquiryRepo,
	events eventRepo,
	tx txManager,
	leases leaseManager,
	c *codec.Codec,
	notifier notify.Notifier,
	opts Options,
) *Service {
	if opts.Policy.MaxPerUser <= 0 || opts.Policy.MaxTotal <= 0 {
		opts.Policy = quota.Default()
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Service{
		inquiries: inquiries,
		events:    events,
		tx:        tx,
		leases:    leases,
		codec:     c,
		notifier:  notifier,
		policy:    opts.Policy,
		maxLen:    opts.MaxMessageLength,
		now:       opts.Now,
		log:       log.With("service", "conversation"),
	}
}

// Policy returns the quota policy in force.
func (s *Service) Policy() quota.Policy {
	return s.policy
}

// loadAuthorized reads an inquiry and checks that userID takes part in it.
func (s *Service) loadAuthorized(ctx context.Context, id, userID uuid.UUID) (*domain.Inquiry, error) {
	inq, err := s.inquiries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inq.IsParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return inq, nil
}

// publish hands an already committed event to the notifier. Failures are logged only.
func (s *Service) publish(ctx context.Context, e domain.Event) {
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.log.WarnContext(ctx, "notify failed",
			slog.String("event_id", e.ID.String()),
			slog.String("type", string(e.Type)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) decode(inq *domain.Inquiry) {
	s.codec.DecodeLog(inq.ChatLog)
}
