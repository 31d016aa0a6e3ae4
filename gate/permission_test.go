package gate_test

import (
	"testing"

	"github.com/diewo77/go-complaints/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	perm := gate.NewPermission("complaints", gate.ActionInsert)
	if perm != "complaints:insert" {
		t.Errorf("expected 'complaints:insert', got '%s'", perm)
	}
}

func TestPermission_Parse(t *testing.T) {
	res, act := gate.Permission("admin_notes:select").Parse()
	if res != "admin_notes" {
		t.Errorf("expected resource 'admin_notes', got '%s'", res)
	}
	if act != gate.ActionSelect {
		t.Errorf("expected action 'select', got '%s'", act)
	}

	res, act = gate.Permission("invalid").Parse()
	if res != "" || act != "" {
		t.Errorf("expected empty strings, got '%s' and '%s'", res, act)
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		have, want gate.Permission
		match      bool
	}{
		{"complaints:insert", "complaints:insert", true},
		{"complaints:insert", "complaints:delete", false},
		{"complaints:insert", "profiles:insert", false},
		{gate.PermissionSuperAdmin, "user_roles:delete", true},
		{"complaints:*", "complaints:update", true},
		{"complaints:*", "admin_notes:update", false},
		{"*:select", "complaint_status_history:select", true},
		{"*:select", "complaint_status_history:insert", false},
		{"invalid", "complaints:select", false},
	}
	for _, tt := range tests {
		if got := tt.have.Matches(tt.want); got != tt.match {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.have, tt.want, got, tt.match)
		}
	}
}
