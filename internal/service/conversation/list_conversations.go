package conversation

import (
	"context"
	"fmt"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

// ListConversations returns a page of the caller's inquiries on one side
// together with the total count for that side.
func (s *Service) ListConversations(ctx context.Context, input ListInput) ([]domain.InquirySummary, int, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, 0, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, 0, err
	}

	limit := input.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	items, total, err := s.inquiries.ListByParticipant(ctx, userID, input.Role, limit, input.Offset)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("list inquiries: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}
