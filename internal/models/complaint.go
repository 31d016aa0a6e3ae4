package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Complaint is the central entity. OwnerID never changes after insert.
type Complaint struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string            `gorm:"size:36;not null;index" json:"owner_id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Category    string            `gorm:"size:100;not null" json:"category"`
	Status      ComplaintStatus   `gorm:"size:20;not null;default:new;index;check:chk_complaints_status,status IN ('new','in_progress','resolved','closed')" json:"status"`
	Priority    ComplaintPriority `gorm:"size:20;not null;default:medium;check:chk_complaints_priority,priority IN ('low','medium','high','urgent')" json:"priority"`
	IsAnonymous bool              `gorm:"not null;default:false" json:"is_anonymous"`
	AssignedTo  *string           `gorm:"size:36;index" json:"assigned_to,omitempty"`
	Upvotes     int               `gorm:"not null;default:0;check:chk_complaints_upvotes,upvotes >= 0" json:"upvotes"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	Attachments []Attachment `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

func (c *Complaint) OwnerAccountID() string { return c.OwnerID }

// Validate checks the column-level invariants.
func (c *Complaint) Validate() error {
	if c.OwnerID == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrMissingTitle
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	if !c.Priority.Valid() {
		return ErrInvalidPriority
	}
	if c.Upvotes < 0 {
		return ErrNegativeUpvotes
	}
	return nil
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusNew
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	return c.Validate()
}

// BeforeUpdate validates the row and stamps updated_at.
func (c *Complaint) BeforeUpdate(tx *gorm.DB) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := time.Now()
	c.UpdatedAt = now
	tx.Statement.SetColumn("UpdatedAt", now)
	return nil
}
