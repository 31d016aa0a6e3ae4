package gate_test

import (
	"context"
	"testing"

	"github.com/diewo77/go-complaints/gate"
)

func TestStaticProfile_HasPermission(t *testing.T) {
	profile := gate.NewStaticProfile("student",
		gate.NewPermission("complaints", gate.ActionInsert),
		gate.NewPermission("complaints", gate.ActionUpdate),
	)

	if !profile.HasPermission(gate.NewPermission("complaints", gate.ActionInsert)) {
		t.Error("should have complaints:insert permission")
	}
	if profile.HasPermission(gate.NewPermission("complaints", gate.ActionDelete)) {
		t.Error("should not have complaints:delete permission")
	}
}

func TestStaticProfile_Permissions_Sorted(t *testing.T) {
	profile := gate.NewStaticProfile("p", "b:select", "a:select", "c:select")
	perms := profile.Permissions()
	if len(perms) != 3 || perms[0] != "a:select" || perms[2] != "c:select" {
		t.Errorf("unexpected permissions order: %v", perms)
	}
}

func TestMerge(t *testing.T) {
	student := gate.NewStaticProfile("student", "complaints:insert")
	admin := gate.NewStaticProfile("admin", "admin_notes:*")

	merged := gate.Merge("admin+student", student, nil, admin)
	if merged.Name() != "admin+student" {
		t.Errorf("unexpected name %q", merged.Name())
	}
	if !merged.HasPermission("complaints:insert") || !merged.HasPermission("admin_notes:select") {
		t.Error("merged profile should hold the union of permissions")
	}
	if student.HasPermission("admin_notes:select") {
		t.Error("merge must not mutate its inputs")
	}
}

func TestStaticResolver(t *testing.T) {
	resolver := gate.NewStaticResolver[string]()
	resolver.Set("acc-1", gate.NewStaticProfile("student", gate.NewPermission("complaints", gate.ActionSelect)))

	resolved, err := resolver.Resolve(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved == nil || resolved.Name() != "student" {
		t.Fatalf("expected student profile, got %v", resolved)
	}

	unknown, err := resolver.Resolve(context.Background(), "acc-999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unknown != nil {
		t.Error("expected nil for unknown subject")
	}
}
