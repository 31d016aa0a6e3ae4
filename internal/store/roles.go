package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDuplicateRole = errors.New("account already holds this role")

// ListRoles returns role assignments, for one account or for all when accountID is empty.
func (s *Store) ListRoles(ctx context.Context, actor Actor, accountID string) ([]models.UserRole, error) {
	ok, err := s.readable(ctx, actor, policy.TableUserRoles)
	if err != nil || !ok {
		return []models.UserRole{}, err
	}
	roles := []models.UserRole{}
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		q := tx.Order("account_id").Order("role")
		if accountID != "" {
			q = q.Where("account_id = ?", accountID)
		}
		return q.Find(&roles).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GrantRole assigns role to accountID. Granting a held role is a no-op that
// returns the existing assignment.
func (s *Store) GrantRole(ctx context.Context, actor Actor, accountID string, role models.Role) (*models.UserRole, error) {
	if !role.Valid() {
		return nil, invalid(models.ErrInvalidRole)
	}
	r := models.UserRole{AccountID: accountID, Role: role}
	if err := s.authorize(ctx, actor, gate.ActionInsert, policy.TableUserRoles, &r); err != nil {
		return nil, err
	}
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		if err := requireAccount(tx, accountID); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "role"}},
			DoNothing: true,
		}).Create(&r).Error
		if err != nil {
			return fmt.Errorf("grant role: %w", err)
		}
		var stored models.UserRole
		if err := tx.Where("account_id = ? AND role = ?", accountID, role).First(&stored).Error; err != nil {
			return err
		}
		r = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.authz.InvalidateAccount(accountID)
	return &r, nil
}

// RevokeRole removes role from accountID.
func (s *Store) RevokeRole(ctx context.Context, actor Actor, accountID string, role models.Role) error {
	if !role.Valid() {
		return invalid(models.ErrInvalidRole)
	}
	r := models.UserRole{AccountID: accountID, Role: role}
	if err := s.authorize(ctx, actor, gate.ActionDelete, policy.TableUserRoles, &r); err != nil {
		return err
	}
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		res := tx.Where("account_id = ? AND role = ?", accountID, role).Delete(&models.UserRole{})
		if res.Error != nil {
			return fmt.Errorf("revoke role: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: role assignment", ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.authz.InvalidateAccount(accountID)
	return nil
}

// DeleteRole removes one role assignment by id.
func (s *Store) DeleteRole(ctx context.Context, actor Actor, roleID string) error {
	var accountID string
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		var r models.UserRole
		if err := tx.First(&r, "id = ?", roleID).Error; err != nil {
			return notFound(err, "role assignment")
		}
		if err := s.authorize(ctx, actor, gate.ActionDelete, policy.TableUserRoles, &r); err != nil {
			return err
		}
		accountID = r.AccountID
		return tx.Delete(&r).Error
	})
	if err != nil {
		return err
	}
	s.authz.InvalidateAccount(accountID)
	return nil
}

// ChangeRole replaces the role of an existing assignment.
func (s *Store) ChangeRole(ctx context.Context, actor Actor, roleID string, role models.Role) (*models.UserRole, error) {
	if !role.Valid() {
		return nil, invalid(models.ErrInvalidRole)
	}
	var r models.UserRole
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		if err := tx.First(&r, "id = ?", roleID).Error; err != nil {
			return notFound(err, "role assignment")
		}
		if err := s.authorize(ctx, actor, gate.ActionUpdate, policy.TableUserRoles, &r); err != nil {
			return err
		}
		if r.Role == role {
			return nil
		}
		var dup int64
		if err := tx.Model(&models.UserRole{}).Where("account_id = ? AND role = ?", r.AccountID, role).Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return invalid(ErrDuplicateRole)
		}
		r.Role = role
		return tx.Model(&r).Select("Role").Updates(&r).Error
	})
	if err != nil {
		return nil, err
	}
	s.authz.InvalidateAccount(r.AccountID)
	return &r, nil
}

var ErrUnknownAccount = errors.New("unknown account")

func requireAccount(tx *gorm.DB, accountID string) error {
	var count int64
	if err := tx.Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return invalid(ErrUnknownAccount)
	}
	return nil
}
