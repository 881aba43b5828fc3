package conversation

import (
	"context"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

// GetConversation loads an inquiry with its full chat log decoded for display.
// A cancelled ctx yields ctx.Err() and never a partially loaded inquiry.
func (s *Service) GetConversation(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	inq, err := s.loadAuthorized(ctx, id, userID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	s.decode(inq)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return inq, nil
}
