package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is one-to-one with Account; its primary key is the account id.
type Profile struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	FullName   string    `gorm:"size:255" json:"full_name"`
	AvatarURL  string    `gorm:"size:1024" json:"avatar_url,omitempty"`
	Phone      string    `gorm:"size:50" json:"phone,omitempty"`
	Department string    `gorm:"size:255" json:"department,omitempty"`
	Batch      string    `gorm:"size:50" json:"batch,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *Profile) OwnerAccountID() string { return p.ID }

// BeforeUpdate stamps updated_at regardless of what the caller supplied.
func (p *Profile) BeforeUpdate(tx *gorm.DB) error {
	now := time.Now()
	p.UpdatedAt = now
	tx.Statement.SetColumn("UpdatedAt", now)
	return nil
}
