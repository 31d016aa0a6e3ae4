package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole assigns a role to an account. (account_id, role) is unique.
type UserRole struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AccountID string    `gorm:"size:36;not null;uniqueIndex:idx_user_roles_account_role" json:"account_id"`
	Role      Role      `gorm:"size:20;not null;uniqueIndex:idx_user_roles_account_role;check:chk_user_roles_role,role IN ('student','admin')" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if !r.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

func (r *UserRole) BeforeUpdate(tx *gorm.DB) error {
	if !r.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
