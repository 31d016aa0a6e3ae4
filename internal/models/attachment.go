package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment is a file stored in the complaint-attachments bucket.
type Attachment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ComplaintID string    `gorm:"size:36;not null;index" json:"complaint_id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	StoragePath string    `gorm:"size:1024;not null" json:"storage_path"`
	FileURL     string    `gorm:"size:2048;not null" json:"file_url"`
	FileSize    int64     `gorm:"not null" json:"file_size"`
	MimeType    string    `gorm:"size:255;not null" json:"mime_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Attachment) TableName() string { return "complaint_attachments" }

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *Attachment) ParentComplaintID() string { return a.ComplaintID }
