// Package quota decides whether a participant may append to a conversation.
// Counts are always derived from the log itself.
package quota

import (
	"github.com/google/uuid"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

const (
	DefaultMaxPerUser = 17
	DefaultMaxTotal   = 34
)

// Reason explains a denied send.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonNotApproved          Reason = "not_approved"
	ReasonPerUserQuotaExceeded Reason = "per_user_quota_exceeded"
	ReasonTotalQuotaExceeded   Reason = "total_quota_exceeded"
)

// Policy holds the message caps for one conversation.
type Policy struct {
	MaxPerUser int
	MaxTotal   int
}

// Default returns the stock 17/34 policy.
func Default() Policy {
	return Policy{MaxPerUser: DefaultMaxPerUser, MaxTotal: DefaultMaxTotal}
}

// Counts is a snapshot of how many messages a log holds.
type Counts struct {
	PerUser int
	Total   int
}

// Decision is the outcome of CanSend.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Err maps a denial to its domain error. Allowed decisions return nil.
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonNotApproved:
		return domain.ErrNotApproved
	case ReasonPerUserQuotaExceeded:
		return domain.ErrPerUserQuotaExceeded
	case ReasonTotalQuotaExceeded:
		return domain.ErrTotalQuotaExceeded
	}
	return nil
}

// CountMessages scans log and returns the number of messages by userID and in total.
func CountMessages(log []domain.ChatMessage, userID uuid.UUID) Counts {
	c := Counts{Total: len(log)}
	for i := range log {
		if log[i].SenderID == userID {
			c.PerUser++
		}
	}
	return c
}

// CanSend evaluates approval first, then the conversation cap, then the
// participant cap.
func (p Policy) CanSend(log []domain.ChatMessage, userID uuid.UUID, approval domain.ApprovalStatus) Decision {
	if approval != domain.ApprovalApproved {
		return Decision{Reason: ReasonNotApproved}
	}

	c := CountMessages(log, userID)
	if c.Total >= p.MaxTotal {
		return Decision{Reason: ReasonTotalQuotaExceeded}
	}
	if c.PerUser >= p.MaxPerUser {
		return Decision{Reason: ReasonPerUserQuotaExceeded}
	}
	return Decision{Allowed: true}
}

// Remaining returns how many more messages userID and the conversation may take.
// Values never go below zero. The per-user figure is also capped by the
// conversation's remaining room.
func (p Policy) Remaining(log []domain.ChatMessage, userID uuid.UUID) Counts {
	c := CountMessages(log, userID)
	r := Counts{
		PerUser: max(p.MaxPerUser-c.PerUser, 0),
		Total:   max(p.MaxTotal-c.Total, 0),
	}
	r.PerUser = min(r.PerUser, r.Total)
	return r
}

// Validate reports a configuration that could never allow a message.
func (p Policy) Validate() error {
	var errs []domain.FieldError
	if p.MaxPerUser <= 0 {
		errs = append(errs, domain.FieldError{Field: "max_per_user", Message: "must be positive"})
	}
	if p.MaxTotal <= 0 {
		errs = append(errs, domain.FieldError{Field: "max_total", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
