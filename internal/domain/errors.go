package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)

// Conversation errors. Each one is a recoverable, typed result the transport
// layer maps to a distinct user-facing reason.
var (
	ErrNotParticipant = fmt.Errorf("%w: not a participant of this inquiry", ErrForbidden)
	ErrNotApproved    = errors.New("inquiry is not approved for chat")
	ErrEmptyMessage   = errors.New("message is empty")

	ErrQuotaExceeded        = errors.New("message quota exceeded")
	ErrPerUserQuotaExceeded = fmt.Errorf("%w: participant limit reached", ErrQuotaExceeded)
	ErrTotalQuotaExceeded   = fmt.Errorf("%w: conversation limit reached", ErrQuotaExceeded)

	// ErrLockTimeout is safe to retry.
	ErrLockTimeout = errors.New("conversation is busy, lease not acquired in time")

	ErrConcurrentModification = fmt.Errorf("%w: concurrent modification", ErrConflict)
	ErrInvalidTransition      = fmt.Errorf("%w: invalid approval transition", ErrConflict)
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
