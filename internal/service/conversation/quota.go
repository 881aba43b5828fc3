package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation/quota"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

// QuotaStatus tells a participant how many more messages they may send.
type QuotaStatus struct {
	Used      quota.Counts
	Remaining quota.Counts
	Limits    quota.Policy
	CanSend   bool
	Reason    quota.Reason
}

// Quota reports the caller's remaining allowance in an inquiry.
func (s *Service) Quota(ctx context.Context, id uuid.UUID) (*QuotaStatus, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	inq, err := s.loadAuthorized(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("load inquiry: %w", err)
	}

	decision := s.policy.CanSend(inq.ChatLog, userID, inq.ApprovalStatus)
	return &QuotaStatus{
		Used:      quota.CountMessages(inq.ChatLog, userID),
		Remaining: s.policy.Remaining(inq.ChatLog, userID),
		Limits:    s.policy,
		CanSend:   decision.Allowed,
		Reason:    decision.Reason,
	}, nil
}
