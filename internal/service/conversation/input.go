package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

// CreateInquiryInput holds the parameters for opening an inquiry.
type CreateInquiryInput struct {
	CounterpartID  uuid.UUID
	Subject        domain.SubjectRef
	InitialMessage string
}

// Validate checks all fields and collects all errors.
func (i CreateInquiryInput) Validate(initiatorID uuid.UUID, maxLen int) error {
	var errs []domain.FieldError

	switch i.CounterpartID {
	case uuid.Nil:
		errs = append(errs, domain.FieldError{Field: "counterpart_id", Message: "required"})
	case initiatorID:
		errs = append(errs, domain.FieldError{Field: "counterpart_id", Message: "cannot open an inquiry with yourself"})
	}

	if !i.Subject.Kind.IsValid() {
		errs = append(errs, domain.FieldError{Field: "subject.kind", Message: "must be product or requirement"})
	}
	if i.Subject.ID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "subject.id", Message: "required"})
	}

	msg := strings.TrimSpace(i.InitialMessage)
	if msg == "" {
		errs = append(errs, domain.FieldError{Field: "initial_message", Message: "required"})
	}
	if utf8.RuneCountInString(msg) > maxLen {
		errs = append(errs, domain.FieldError{Field: "initial_message", Message: fmt.Sprintf("max %d characters", maxLen)})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// SendMessageInput holds the parameters for appending a chat message.
type SendMessageInput struct {
	InquiryID uuid.UUID
	Body      string
}

// checkBody reports an empty body with domain.ErrEmptyMessage, which is
// distinct from a validation failure.
func (i SendMessageInput) checkBody(maxLen int) (string, error) {
	body := strings.TrimSpace(i.Body)
	if body == "" {
		return "", domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > maxLen {
		return "", domain.NewValidationError("body", fmt.Sprintf("max %d characters", maxLen))
	}
	return body, nil
}

// ListInput holds the parameters for listing the caller's inquiries.
type ListInput struct {
	Role   domain.ParticipantRole
	Limit  int
	Offset int
}

// Validate checks all fields and collects all errors.
func (i ListInput) Validate() error {
	var errs []domain.FieldError
	if !i.Role.IsValid() {
		errs = append(errs, domain.FieldError{Field: "role", Message: "must be initiator or counterpart"})
	}
	if i.Limit < 0 {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must be non-negative"})
	}
	if i.Limit > MaxLimit {
		errs = append(errs, domain.FieldError{Field: "limit", Message: fmt.Sprintf("max %d", MaxLimit)})
	}
	if i.Offset < 0 {
		errs = append(errs, domain.FieldError{Field: "offset", Message: "must be non-negative"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
