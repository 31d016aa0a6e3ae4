package identity

import (
	"context"
	"fmt"

	"github.com/diewo77/go-complaints/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// The functions below run with the privileges of the connection, outside the
// row-level policies. They exist so an operator can bootstrap the first admin.
// A running server sees the change once its role cache entry expires.

// GrantRoleByEmail assigns role to the account. Granting a held role is a no-op.
func (s *Service) GrantRoleByEmail(ctx context.Context, email string, role models.Role) (*models.UserRole, error) {
	if !role.Valid() {
		return nil, models.ErrInvalidRole
	}
	account, err := s.AccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	r := models.UserRole{AccountID: account.ID, Role: role}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "role"}},
		DoNothing: true,
	}).Create(&r).Error
	if err != nil {
		return nil, fmt.Errorf("grant role: %w", err)
	}
	var stored models.UserRole
	if err := db.Where("account_id = ? AND role = ?", account.ID, role).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload role: %w", err)
	}
	s.log.Info("role granted", zap.String("account_id", account.ID), zap.String("role", string(role)))
	return &stored, nil
}

// RevokeRoleByEmail removes role from the account. It reports whether a row was removed.
func (s *Service) RevokeRoleByEmail(ctx context.Context, email string, role models.Role) (bool, error) {
	if !role.Valid() {
		return false, models.ErrInvalidRole
	}
	account, err := s.AccountByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Where("account_id = ? AND role = ?", account.ID, role).Delete(&models.UserRole{})
	if res.Error != nil {
		return false, fmt.Errorf("revoke role: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("role revoked", zap.String("account_id", account.ID), zap.String("role", string(role)))
	}
	return res.RowsAffected > 0, nil
}

// RolesByEmail lists the roles held by the account.
func (s *Service) RolesByEmail(ctx context.Context, email string) ([]models.Role, error) {
	account, err := s.AccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	var roles []models.Role
	err = s.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("account_id = ?", account.ID).
		Order("role").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
