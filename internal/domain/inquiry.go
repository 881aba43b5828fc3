package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubjectRef points at the product or requirement an inquiry is about.
// The referenced entity lives outside this service.
type SubjectRef struct {
	Kind SubjectKind
	ID   uuid.UUID
}

// Inquiry is a bounded two-party conversation about a subject.
type Inquiry struct {
	ID             uuid.UUID
	InitiatorID    uuid.UUID
	CounterpartID  uuid.UUID
	Subject        SubjectRef
	InitialMessage string
	ApprovalStatus ApprovalStatus
	Status         InquiryStatus
	ChatLog        []ChatMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsParticipant reports whether userID is one of the two fixed parties.
func (i *Inquiry) IsParticipant(userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	return userID == i.InitiatorID || userID == i.CounterpartID
}

// RoleOf returns the side userID takes in the inquiry.
func (i *Inquiry) RoleOf(userID uuid.UUID) (ParticipantRole, bool) {
	switch {
	case userID == uuid.Nil:
		return "", false
	case userID == i.InitiatorID:
		return RoleInitiator, true
	case userID == i.CounterpartID:
		return RoleCounterpart, true
	}
	return "", false
}

// OtherParty returns the participant that is not userID.
func (i *Inquiry) OtherParty(userID uuid.UUID) uuid.UUID {
	if userID == i.InitiatorID {
		return i.CounterpartID
	}
	return i.InitiatorID
}

// LastMessage returns the newest chat message, or nil for an empty log.
func (i *Inquiry) LastMessage() *ChatMessage {
	if len(i.ChatLog) == 0 {
		return nil
	}
	return &i.ChatLog[len(i.ChatLog)-1]
}

// NextSeq is the sequence number the next appended message must take.
func (i *Inquiry) NextSeq() int {
	return len(i.ChatLog) + 1
}

// ChatMessage is one entry of an inquiry's append-only log.
// Body holds the stored form, which may be a legacy obfuscated payload.
type ChatMessage struct {
	ID        uuid.UUID
	InquiryID uuid.UUID
	Seq       int
	SenderID  uuid.UUID
	Body      string
	SentAt    time.Time

	// Decoded is filled in on the read path.
	Decoded *DecodedBody
}

// BodyEncoding tags how a stored body was interpreted.
type BodyEncoding string

const (
	EncodingPlain           BodyEncoding = "plain"
	EncodingLegacyRecovered BodyEncoding = "legacy_recovered"
	EncodingLegacyOpaque    BodyEncoding = "legacy_opaque"
)

// DecodedBody is the render-safe form of a stored message body.
type DecodedBody struct {
	Text     string
	Encoding BodyEncoding
}

// IsLegacyEncrypted reports whether Text is still in the obfuscated form
// and should be flagged to the reader.
func (d DecodedBody) IsLegacyEncrypted() bool {
	return d.Encoding == EncodingLegacyOpaque
}

// NextSentAt returns a server timestamp for a message appended after last.
// The result is truncated to microseconds and is strictly after last.
func NextSentAt(now time.Time, last *ChatMessage) time.Time {
	t := now.UTC().Truncate(time.Microsecond)
	if last == nil {
		return t
	}
	floor := last.SentAt.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	if t.Before(floor) {
		return floor
	}
	return t
}

// InquirySummary is the listing projection of an inquiry.
type InquirySummary struct {
	ID             uuid.UUID
	InitiatorID    uuid.UUID
	CounterpartID  uuid.UUID
	Subject        SubjectRef
	ApprovalStatus ApprovalStatus
	Status         InquiryStatus
	MessageCount   int
	LastMessageAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Summarize builds the listing projection from a fully loaded inquiry.
func (i *Inquiry) Summarize() InquirySummary {
	s := InquirySummary{
		ID:             i.ID,
		InitiatorID:    i.InitiatorID,
		CounterpartID:  i.CounterpartID,
		Subject:        i.Subject,
		ApprovalStatus: i.ApprovalStatus,
		Status:         i.Status,
		MessageCount:   len(i.ChatLog),
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
	if last := i.LastMessage(); last != nil {
		t := last.SentAt
		s.LastMessageAt = &t
	}
	return s
}
