package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusHistory is an append-only audit row of a status change.
type StatusHistory struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	ComplaintID string          `gorm:"size:36;not null;index" json:"complaint_id"`
	Status      ComplaintStatus `gorm:"size:20;not null;check:chk_status_history_status,status IN ('new','in_progress','resolved','closed')" json:"status"`
	ChangedBy   string          `gorm:"size:36;not null" json:"changed_by"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (StatusHistory) TableName() string { return "complaint_status_history" }

func (h *StatusHistory) AuthorAccountID() string { return h.ChangedBy }

func (h *StatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if !h.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
