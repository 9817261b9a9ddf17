package domain

import (
	"testing"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		role     Role
		expected AccessTier
	}{
		{RoleOwner, TierOwner},
		{RoleForeman, TierForeman},
		{RoleWorker, TierWorker},
		{RoleInspector, TierWorker},
		{RoleSubcontractor, TierWorker},
		{RolePublic, TierPublic},
		{Role("visitor"), TierPublic},
		{Role(""), TierPublic},
	}
	for _, tt := range tests {
		if got := TierOf(tt.role); got != tt.expected {
			t.Errorf("TierOf(%q) = %v, want %v", tt.role, got, tt.expected)
		}
	}
}

func TestHasAccess_Ordering(t *testing.T) {
	tiers := []AccessTier{TierPublic, TierWorker, TierForeman, TierOwner}

	// Owner sees every tier.
	for _, tier := range tiers {
		if !HasAccess(RoleOwner, tier) {
			t.Errorf("expected owner to have access to tier %v", tier)
		}
	}

	if HasAccess(RoleWorker, TierForeman) {
		t.Error("worker must not have foreman access")
	}
	if HasAccess(RoleWorker, TierOwner) {
		t.Error("worker must not have owner access")
	}
	if !HasAccess(RoleWorker, TierWorker) {
		t.Error("worker should have worker access")
	}
	if !HasAccess(RoleForeman, TierWorker) {
		t.Error("foreman should have worker access")
	}
	if HasAccess(Role("unknown"), TierWorker) {
		t.Error("unmapped role should resolve to public")
	}
}

func TestCanEdit(t *testing.T) {
	if !CanEdit(RoleForeman, false) {
		t.Error("foreman edits without the edit-mode flag")
	}
	if CanEdit(RoleOwner, false) {
		t.Error("owner read access must not imply write access")
	}
	if !CanEdit(RoleOwner, true) {
		t.Error("owner edits once edit mode is on")
	}
	if CanEdit(RoleWorker, true) {
		t.Error("worker never edits")
	}
	if CanEdit(RolePublic, true) {
		t.Error("public never edits")
	}
}

func TestCanViewFinancials(t *testing.T) {
	if !CanViewFinancials(RoleOwner) {
		t.Error("owner views financials")
	}
	for _, role := range []Role{RoleForeman, RoleWorker, RoleInspector, RoleSubcontractor, RolePublic} {
		if CanViewFinancials(role) {
			t.Errorf("%s must not view financials", role)
		}
	}
}

func TestCanToggleTask(t *testing.T) {
	assigned := &Task{AssignedTo: "user-1"}
	other := &Task{AssignedTo: "user-2"}

	if !CanToggleTask(RoleOwner, other, "user-1") {
		t.Error("owner toggles any task")
	}
	if !CanToggleTask(RoleForeman, other, "user-1") {
		t.Error("foreman toggles any task")
	}
	for _, role := range []Role{RoleWorker, RoleInspector, RoleSubcontractor} {
		if !CanToggleTask(role, assigned, "user-1") {
			t.Errorf("%s toggles own task", role)
		}
		if CanToggleTask(role, other, "user-1") {
			t.Errorf("%s must not toggle another's task", role)
		}
	}
	if CanToggleTask(RolePublic, assigned, "user-1") {
		t.Error("public never toggles")
	}
}

func TestCanRequestChange(t *testing.T) {
	if !CanRequestChange(RoleForeman) || !CanRequestChange(RoleSubcontractor) {
		t.Error("foreman and subcontractor request changes")
	}
	if CanRequestChange(RoleOwner) {
		t.Error("owner resolves changes, does not request them")
	}
	if CanRequestChange(RoleWorker) {
		t.Error("worker must not request changes")
	}
}
