package policy

import (
	"context"
	"fmt"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
	"gorm.io/gorm"
)

// DBRoleResolver reads user_roles directly through the privileged connection.
// It is the definer-context side of authorization: it never goes through the
// store's policy path, so checking a role can never recurse into a role check.
type DBRoleResolver struct {
	DB *gorm.DB
}

func NewDBRoleResolver(db *gorm.DB) *DBRoleResolver {
	return &DBRoleResolver{DB: db}
}

// Resolve returns the merged RoleProfile of every role accountID holds,
// or nil when it holds none.
func (r *DBRoleResolver) Resolve(ctx context.Context, accountID string) (gate.Profile, error) {
	var roles []models.Role
	err := r.DB.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("account_id = ?", accountID).
		Pluck("role", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	if len(roles) == 0 {
		return nil, nil
	}
	return NewRoleProfile(roles...), nil
}

// HasRole reports whether a user_roles row exists for exactly (accountID, role).
// On PostgreSQL it calls the SECURITY DEFINER function public.has_role.
func (r *DBRoleResolver) HasRole(ctx context.Context, accountID string, role models.Role) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	db := r.DB.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		var ok bool
		err := db.Raw("SELECT public.has_role(?::uuid, ?::app_role)", accountID, string(role)).Scan(&ok).Error
		if err != nil {
			return false, fmt.Errorf("has_role: %w", err)
		}
		return ok, nil
	}
	var count int64
	err := db.Model(&models.UserRole{}).
		Where("account_id = ? AND role = ?", accountID, role).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("has_role: %w", err)
	}
	return count > 0, nil
}

// ComplaintOwner looks up the owner of a complaint, bypassing row policies.
// It returns "" when the complaint does not exist.
func (r *DBRoleResolver) ComplaintOwner(ctx context.Context, complaintID string) (string, error) {
	var owners []string
	err := r.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ?", complaintID).
		Limit(1).
		Pluck("owner_id", &owners).Error
	if err != nil {
		return "", fmt.Errorf("complaint owner: %w", err)
	}
	if len(owners) == 0 {
		return "", nil
	}
	return owners[0], nil
}

// adminResolver takes every role except admin from the cached profile and
// asks has_role for admin on each resolution, so admin-only capabilities
// follow user_roles immediately after a grant or revoke.
type adminResolver struct {
	cached gate.ProfileResolver[string]
	roles  *DBRoleResolver
}

func (r *adminResolver) Resolve(ctx context.Context, accountID string) (gate.Profile, error) {
	p, err := r.cached.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	admin, err := r.roles.HasRole(ctx, accountID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	var held []models.Role
	if rp, ok := p.(*RoleProfile); ok {
		for _, role := range rp.Roles() {
			if role != models.RoleAdmin {
				held = append(held, role)
			}
		}
	}
	if admin {
		held = append(held, models.RoleAdmin)
	}
	if len(held) == 0 {
		return nil, nil
	}
	return NewRoleProfile(held...), nil
}
