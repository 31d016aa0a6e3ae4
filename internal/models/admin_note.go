package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminNote is an internal note on a complaint, never shown to students.
type AdminNote struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ComplaintID string    `gorm:"size:36;not null;index" json:"complaint_id"`
	Note        string    `gorm:"type:text;not null" json:"note"`
	AdminID     string    `gorm:"size:36;not null" json:"admin_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *AdminNote) AuthorAccountID() string { return a.AdminID }

func (a *AdminNote) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
