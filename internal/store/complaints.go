package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/policy"
	"gorm.io/gorm"
)

var ErrOwnerImmutable = errors.New("complaint owner cannot change")

// ComplaintFilter narrows ListComplaints. Zero fields do not filter.
type ComplaintFilter struct {
	OwnerID    string
	AssignedTo string
	Status     models.ComplaintStatus
	Category   string
	Limit      int
	Offset     int
}

// ComplaintPatch carries the complaint fields to change; nil means unchanged.
// OwnerID is accepted only to reject attempts to move ownership.
type ComplaintPatch struct {
	Title       *string                   `json:"title"`
	Description *string                   `json:"description"`
	Category    *string                   `json:"category"`
	Priority    *models.ComplaintPriority `json:"priority"`
	Status      *models.ComplaintStatus   `json:"status"`
	IsAnonymous *bool                     `json:"is_anonymous"`
	Upvotes     *int                      `json:"upvotes"`
	OwnerID     *string                   `json:"owner_id"`
}

// ListComplaints returns complaints newest first.
func (s *Store) ListComplaints(ctx context.Context, actor Actor, f ComplaintFilter) ([]models.Complaint, error) {
	ok, err := s.readable(ctx, actor, policy.TableComplaints)
	if err != nil || !ok {
		return []models.Complaint{}, err
	}
	if !policy.PublicComplaintBoard && !s.IsAdmin(ctx, actor) {
		f.OwnerID = actor.ID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid(models.ErrInvalidStatus)
	}

	complaints := []models.Complaint{}
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		q := tx.Order("created_at DESC").Order("id")
		if f.OwnerID != "" {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		if f.AssignedTo != "" {
			q = q.Where("assigned_to = ?", f.AssignedTo)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		if f.Offset > 0 {
			q = q.Offset(f.Offset)
		}
		return q.Find(&complaints).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, nil
}

// GetComplaint returns one complaint with its attachments when those are readable.
func (s *Store) GetComplaint(ctx context.Context, actor Actor, id string) (*models.Complaint, error) {
	ok, err := s.readable(ctx, actor, policy.TableComplaints)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: complaint", ErrNotFound)
	}
	withAttachments, _ := s.readable(ctx, actor, policy.TableAttachments)

	var c models.Complaint
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		q := tx
		if withAttachments {
			q = q.Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") })
		}
		return q.First(&c, "id = ?", id).Error
	})
	if err != nil {
		return nil, notFound(err, "complaint")
	}
	if !policy.PublicComplaintBoard && c.OwnerID != actor.ID && !s.IsAdmin(ctx, actor) {
		return nil, fmt.Errorf("%w: complaint", ErrNotFound)
	}
	return &c, nil
}

// CreateComplaint inserts c. The owner must be the actor. Every complaint
// starts as new; a missing priority defaults to medium.
func (s *Store) CreateComplaint(ctx context.Context, actor Actor, c *models.Complaint) error {
	if err := s.authorize(ctx, actor, gate.ActionInsert, policy.TableComplaints, c); err != nil {
		return err
	}
	c.Status = models.StatusNew
	if c.Priority == "" {
		c.Priority = models.PriorityMedium
	}
	if err := c.Validate(); err != nil {
		return invalid(err)
	}
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.Omit("Attachments").Create(c).Error
	})
	if err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// UpdateComplaint applies patch for the owner or an admin. A status change
// by an admin appends its history row in the same transaction.
func (s *Store) UpdateComplaint(ctx context.Context, actor Actor, id string, patch ComplaintPatch) (*models.Complaint, error) {
	var entry *models.StatusHistory
	if patch.Status != nil {
		var err error
		if entry, err = s.statusEntry(ctx, actor, id, *patch.Status, ""); err != nil {
			return nil, err
		}
	}
	return s.mutateComplaint(ctx, actor, id, func(tx *gorm.DB, c *models.Complaint) ([]string, error) {
		if patch.OwnerID != nil && *patch.OwnerID != c.OwnerID {
			return nil, invalid(ErrOwnerImmutable)
		}
		var cols []string
		if patch.Title != nil {
			c.Title = *patch.Title
			cols = append(cols, "Title")
		}
		if patch.Description != nil {
			c.Description = *patch.Description
			cols = append(cols, "Description")
		}
		if patch.Category != nil {
			c.Category = *patch.Category
			cols = append(cols, "Category")
		}
		if patch.Priority != nil {
			c.Priority = *patch.Priority
			cols = append(cols, "Priority")
		}
		if patch.Status != nil {
			c.Status = *patch.Status
			cols = append(cols, "Status")
		}
		if patch.IsAnonymous != nil {
			c.IsAnonymous = *patch.IsAnonymous
			cols = append(cols, "IsAnonymous")
		}
		if patch.Upvotes != nil {
			c.Upvotes = *patch.Upvotes
			cols = append(cols, "Upvotes")
		}
		return cols, nil
	}, appendHistory(entry))
}

// ChangeStatus sets the complaint status. When the actor is an admin the
// status-history row is written in the same transaction, so either both
// land or neither does.
func (s *Store) ChangeStatus(ctx context.Context, actor Actor, id string, status models.ComplaintStatus, notes string) (*models.Complaint, *models.StatusHistory, error) {
	entry, err := s.statusEntry(ctx, actor, id, status, notes)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.mutateComplaint(ctx, actor, id, func(tx *gorm.DB, c *models.Complaint) ([]string, error) {
		c.Status = status
		return []string{"Status"}, nil
	}, appendHistory(entry))
	if err != nil {
		return nil, nil, err
	}
	return c, entry, nil
}

// statusEntry validates status and, for an admin actor, builds and authorizes
// the history row recording the change. Owners get no entry.
func (s *Store) statusEntry(ctx context.Context, actor Actor, id string, status models.ComplaintStatus, notes string) (*models.StatusHistory, error) {
	if !status.Valid() {
		return nil, invalid(models.ErrInvalidStatus)
	}
	if !s.IsAdmin(ctx, actor) {
		return nil, nil
	}
	entry := &models.StatusHistory{
		ComplaintID: id,
		Status:      status,
		ChangedBy:   actor.ID,
		Notes:       notes,
	}
	if err := s.authorize(ctx, actor, gate.ActionInsert, policy.TableStatusHistory, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func appendHistory(entry *models.StatusHistory) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		if entry == nil {
			return nil
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
		return nil
	}
}

// AssignComplaint sets or clears the assigned account.
func (s *Store) AssignComplaint(ctx context.Context, actor Actor, id string, assignee *string) (*models.Complaint, error) {
	return s.mutateComplaint(ctx, actor, id, func(tx *gorm.DB, c *models.Complaint) ([]string, error) {
		if assignee != nil && *assignee == "" {
			assignee = nil
		}
		if assignee != nil {
			if err := requireAccount(tx, *assignee); err != nil {
				return nil, err
			}
		}
		c.AssignedTo = assignee
		return []string{"AssignedTo"}, nil
	})
}

// mutateComplaint loads the complaint, checks the update policy, lets apply
// change fields, then validates and saves the changed columns. The after hooks
// share the write transaction.
func (s *Store) mutateComplaint(
	ctx context.Context,
	actor Actor,
	id string,
	apply func(tx *gorm.DB, c *models.Complaint) ([]string, error),
	after ...func(tx *gorm.DB) error,
) (*models.Complaint, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var c models.Complaint
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.First(&c, "id = ?", id).Error
	})
	if err != nil {
		return nil, notFound(err, "complaint")
	}
	// Policy lookups use their own connection, so they run before the
	// write transaction opens.
	if err := s.authorize(ctx, actor, gate.ActionUpdate, policy.TableComplaints, &c); err != nil {
		return nil, err
	}
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		cols, err := apply(tx, &c)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		if err := c.Validate(); err != nil {
			return invalid(err)
		}
		if err := tx.Model(&c).Select(cols).Updates(&c).Error; err != nil {
			return fmt.Errorf("update complaint: %w", err)
		}
		for _, fn := range after {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}
