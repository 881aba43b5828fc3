package domain

// ApprovalStatus is the moderation gate of an inquiry.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) String() string { return string(s) }

func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further moderation transition is allowed.
// Both outcomes of moderation are final for this subsystem.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// CanTransitionTo reports whether a moderator may move an inquiry from s to next.
// Only pending -> approved and pending -> rejected are legal.
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	if s != ApprovalPending {
		return false
	}
	return next == ApprovalApproved || next == ApprovalRejected
}

// InquiryStatus is the secondary activity indicator of an inquiry.
type InquiryStatus string

const (
	InquiryStatusSent    InquiryStatus = "sent"
	InquiryStatusReplied InquiryStatus = "replied"
	InquiryStatusClosed  InquiryStatus = "closed"
)

func (s InquiryStatus) String() string { return string(s) }

func (s InquiryStatus) IsValid() bool {
	switch s {
	case InquiryStatusSent, InquiryStatusReplied, InquiryStatusClosed:
		return true
	}
	return false
}

// SubjectKind identifies what an inquiry is about.
type SubjectKind string

const (
	SubjectProduct     SubjectKind = "product"
	SubjectRequirement SubjectKind = "requirement"
)

func (k SubjectKind) String() string { return string(k) }

func (k SubjectKind) IsValid() bool {
	switch k {
	case SubjectProduct, SubjectRequirement:
		return true
	}
	return false
}

// ParticipantRole selects which side of an inquiry a listing is for.
type ParticipantRole string

const (
	RoleInitiator   ParticipantRole = "initiator"
	RoleCounterpart ParticipantRole = "counterpart"
)

func (r ParticipantRole) String() string { return string(r) }

func (r ParticipantRole) IsValid() bool {
	switch r {
	case RoleInitiator, RoleCounterpart:
		return true
	}
	return false
}

// EventType names a notification-worthy change of an inquiry.
type EventType string

const (
	EventInquiryCreated  EventType = "inquiry.created"
	EventApprovalChanged EventType = "inquiry.approval_changed"
	EventMessageAppended EventType = "inquiry.message_appended"
)

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	switch e {
	case EventInquiryCreated, EventApprovalChanged, EventMessageAppended:
		return true
	}
	return false
}

// UserRole represents the authorization level of a user.
type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin:
		return true
	}
	return false
}

// CanModerate reports whether the role may change approval status.
func (r UserRole) CanModerate() bool {
	return r == UserRoleModerator || r == UserRoleAdmin
}
