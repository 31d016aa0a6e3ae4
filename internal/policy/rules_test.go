package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/policy"
)

type mockNonOwnable struct {
	ID string
}

func TestOwnershipPolicy_OwnerCanAccess(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()
	row := &models.Complaint{OwnerID: "acc-42"}

	if !p.Can(ctx, "acc-42", gate.ActionInsert, row) {
		t.Error("Expected owner to have access for insert")
	}
	if !p.Can(ctx, "acc-42", gate.ActionUpdate, row) {
		t.Error("Expected owner to have access for update")
	}
}

func TestOwnershipPolicy_NonOwnerDenied(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	row := &models.Complaint{OwnerID: "acc-42"}

	if p.Can(context.Background(), "acc-99", gate.ActionUpdate, row) {
		t.Error("Expected non-owner to be denied")
	}
}

func TestOwnershipPolicy_NonOwnableResource(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	if p.Can(context.Background(), "acc-1", gate.ActionUpdate, &mockNonOwnable{ID: "x"}) {
		t.Error("Expected non-Ownable resource to be denied")
	}
	if p.Can(context.Background(), "acc-1", gate.ActionUpdate, nil) {
		t.Error("Expected nil row to be denied")
	}
}

func TestAuthorPolicy(t *testing.T) {
	p := policy.NewAuthorPolicy()
	note := &models.AdminNote{AdminID: "acc-1"}

	if !p.Can(context.Background(), "acc-1", gate.ActionInsert, note) {
		t.Error("Expected author to be allowed")
	}
	if p.Can(context.Background(), "acc-2", gate.ActionInsert, note) {
		t.Error("Expected forged author to be denied")
	}
}

func TestParentOwnerPolicy(t *testing.T) {
	owners := map[string]string{"c-1": "acc-1"}
	lookup := func(_ context.Context, id string) (string, error) {
		if id == "c-err" {
			return "", errors.New("boom")
		}
		return owners[id], nil
	}
	p := policy.NewParentOwnerPolicy(lookup)
	ctx := context.Background()

	if !p.Can(ctx, "acc-1", gate.ActionInsert, &models.Attachment{ComplaintID: "c-1"}) {
		t.Error("Expected parent owner to be allowed")
	}
	if p.Can(ctx, "acc-2", gate.ActionInsert, &models.Attachment{ComplaintID: "c-1"}) {
		t.Error("Expected non-owner to be denied")
	}
	if p.Can(ctx, "acc-1", gate.ActionInsert, &models.Attachment{ComplaintID: "missing"}) {
		t.Error("Expected missing parent to be denied")
	}
	if p.Can(ctx, "acc-1", gate.ActionInsert, &models.Attachment{ComplaintID: "c-err"}) {
		t.Error("Expected lookup error to deny")
	}
}

func TestAdminBypassPolicy(t *testing.T) {
	isAdmin := func(_ context.Context, id string) bool { return id == "admin" }
	p := policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin)
	ctx := context.Background()
	row := &models.Complaint{OwnerID: "acc-42"}

	if !p.Can(ctx, "admin", gate.ActionUpdate, row) {
		t.Error("Expected admin to bypass ownership check")
	}
	if !p.Can(ctx, "acc-42", gate.ActionUpdate, row) {
		t.Error("Expected owner to have access")
	}
	if p.Can(ctx, "acc-99", gate.ActionUpdate, row) {
		t.Error("Expected non-owner non-admin to be denied")
	}
}

func TestActionRules_FallsThroughWithoutRule(t *testing.T) {
	rules := policy.ActionRules{gate.ActionUpdate: policy.NewOwnershipPolicy()}
	row := &models.Complaint{OwnerID: "acc-1"}

	if !rules.Can(context.Background(), "acc-2", gate.ActionSelect, row) {
		t.Error("Expected select without a rule to be allowed")
	}
	if rules.Can(context.Background(), "acc-2", gate.ActionUpdate, row) {
		t.Error("Expected update rule to apply")
	}
}

func TestRoleProfile(t *testing.T) {
	student := policy.NewRoleProfile(models.RoleStudent)
	admin := policy.NewRoleProfile(models.RoleStudent, models.RoleAdmin)

	if student.Name() != "student" || admin.Name() != "admin" {
		t.Errorf("unexpected names %q %q", student.Name(), admin.Name())
	}
	if student.HasRole(models.RoleAdmin) || !admin.HasRole(models.RoleAdmin) {
		t.Error("role membership mismatch")
	}
	if got := admin.Roles(); len(got) != 2 {
		t.Errorf("expected two roles, got %v", got)
	}
	if p := policy.NewRoleProfile("root"); len(p.Permissions()) != 0 {
		t.Error("unknown role must grant nothing")
	}
}
