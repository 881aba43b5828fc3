package domain

import "testing"

func TestApprovalStatus_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ApprovalStatus
		want   bool
	}{
		{ApprovalPending, true},
		{ApprovalApproved, true},
		{ApprovalRejected, true},
		{ApprovalStatus("APPROVED"), false},
		{ApprovalStatus(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("ApprovalStatus(%q).IsValid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestApprovalStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to ApprovalStatus
		want     bool
	}{
		{ApprovalPending, ApprovalApproved, true},
		{ApprovalPending, ApprovalRejected, true},
		{ApprovalPending, ApprovalPending, false},
		{ApprovalApproved, ApprovalRejected, false},
		{ApprovalApproved, ApprovalPending, false},
		{ApprovalRejected, ApprovalApproved, false},
		{ApprovalRejected, ApprovalPending, false},
		{ApprovalPending, ApprovalStatus("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestApprovalStatus_IsTerminal(t *testing.T) {
	t.Parallel()
	if ApprovalPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	if !ApprovalApproved.IsTerminal() || !ApprovalRejected.IsTerminal() {
		t.Error("approved and rejected must be terminal")
	}
}

func TestSubjectKind_IsValid(t *testing.T) {
	t.Parallel()
	if !SubjectProduct.IsValid() || !SubjectRequirement.IsValid() {
		t.Error("product and requirement must be valid")
	}
	if SubjectKind("company").IsValid() {
		t.Error("company must not be a valid subject kind")
	}
}

func TestParticipantRole_IsValid(t *testing.T) {
	t.Parallel()
	if !RoleInitiator.IsValid() || !RoleCounterpart.IsValid() {
		t.Error("initiator and counterpart must be valid")
	}
	if ParticipantRole("moderator").IsValid() {
		t.Error("moderator is not a participant role")
	}
}

func TestUserRole_CanModerate(t *testing.T) {
	t.Parallel()
	if UserRoleUser.CanModerate() {
		t.Error("plain users must not moderate")
	}
	if !UserRoleModerator.CanModerate() || !UserRoleAdmin.CanModerate() {
		t.Error("moderators and admins must moderate")
	}
	if got := UserRoleAdmin.String(); got != "admin" {
		t.Errorf("got %q, want admin", got)
	}
}
