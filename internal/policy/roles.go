package policy

import (
	"sort"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
)

// Table names double as gate resources.
const (
	TableProfiles      = "profiles"
	TableUserRoles     = "user_roles"
	TableComplaints    = "complaints"
	TableAttachments   = "complaint_attachments"
	TableStatusHistory = "complaint_status_history"
	TableAdminNotes    = "admin_notes"
)

// PublicComplaintBoard records that complaints, attachments and status history
// are readable by every authenticated account, not only by their owner.
// Admin notes stay admin-only. Flip this to restrict reads to owners and admins.
const PublicComplaintBoard = true

func perm(table string, actions ...gate.Action) []gate.Permission {
	out := make([]gate.Permission, 0, len(actions))
	for _, a := range actions {
		out = append(out, gate.NewPermission(table, a))
	}
	return out
}

// StudentPermissions is the capability set every account gets at sign-up.
func StudentPermissions() []gate.Permission {
	var p []gate.Permission
	p = append(p, perm(TableProfiles, gate.ActionSelect, gate.ActionUpdate)...)
	p = append(p, perm(TableUserRoles, gate.ActionSelect)...)
	p = append(p, perm(TableComplaints, gate.ActionSelect, gate.ActionInsert, gate.ActionUpdate)...)
	p = append(p, perm(TableAttachments, gate.ActionSelect, gate.ActionInsert)...)
	p = append(p, perm(TableStatusHistory, gate.ActionSelect)...)
	return p
}

// AdminPermissions is granted on top of the student set.
func AdminPermissions() []gate.Permission {
	var p []gate.Permission
	p = append(p, gate.NewPermission(TableUserRoles, gate.WildcardAll))
	p = append(p, perm(TableStatusHistory, gate.ActionInsert)...)
	p = append(p, perm(TableAdminNotes, gate.ActionSelect, gate.ActionInsert)...)
	return p
}

// RoleProfile is the merged permission profile of every role an account holds.
type RoleProfile struct {
	*gate.StaticProfile
	roles map[models.Role]bool
}

// NewRoleProfile builds the profile for the given set of roles.
// Unknown roles grant nothing.
func NewRoleProfile(roles ...models.Role) *RoleProfile {
	set := make(map[models.Role]bool, len(roles))
	var perms []gate.Permission
	for _, r := range roles {
		if set[r] {
			continue
		}
		switch r {
		case models.RoleStudent:
			perms = append(perms, StudentPermissions()...)
		case models.RoleAdmin:
			perms = append(perms, StudentPermissions()...)
			perms = append(perms, AdminPermissions()...)
		default:
			continue
		}
		set[r] = true
	}
	p := &RoleProfile{roles: set}
	p.StaticProfile = gate.NewStaticProfile(p.name(), perms...)
	return p
}

func (p *RoleProfile) HasRole(role models.Role) bool { return p.roles[role] }

// Roles returns the held roles in a stable order.
func (p *RoleProfile) Roles() []models.Role {
	out := make([]models.Role, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *RoleProfile) name() string {
	if p.roles[models.RoleAdmin] {
		return string(models.RoleAdmin)
	}
	if p.roles[models.RoleStudent] {
		return string(models.RoleStudent)
	}
	return "none"
}
