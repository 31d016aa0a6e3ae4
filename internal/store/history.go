package store

import (
	"context"
	"fmt"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/policy"
	"gorm.io/gorm"
)

// ListStatusHistory returns a complaint's status changes, oldest first.
func (s *Store) ListStatusHistory(ctx context.Context, actor Actor, complaintID string) ([]models.StatusHistory, error) {
	ok, err := s.readable(ctx, actor, policy.TableStatusHistory)
	if err != nil || !ok {
		return []models.StatusHistory{}, err
	}
	entries := []models.StatusHistory{}
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.Where("complaint_id = ?", complaintID).Order("created_at").Order("id").Find(&entries).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}

// AppendStatusHistory inserts an audit row. Admins only; there is no update
// or delete counterpart.
func (s *Store) AppendStatusHistory(ctx context.Context, actor Actor, h *models.StatusHistory) error {
	if err := s.authorize(ctx, actor, gate.ActionInsert, policy.TableStatusHistory, h); err != nil {
		return err
	}
	if !h.Status.Valid() {
		return invalid(models.ErrInvalidStatus)
	}
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		if err := requireComplaint(tx, h.ComplaintID); err != nil {
			return err
		}
		return tx.Create(h).Error
	})
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func requireComplaint(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Complaint{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: complaint", ErrNotFound)
	}
	return nil
}
