package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/policy"
	"gorm.io/gorm"
)

var ErrEmptyNote = errors.New("note text is required")

// ListAdminNotes returns the notes on a complaint. Non-admins get no rows.
func (s *Store) ListAdminNotes(ctx context.Context, actor Actor, complaintID string) ([]models.AdminNote, error) {
	ok, err := s.readable(ctx, actor, policy.TableAdminNotes)
	if err != nil || !ok {
		return []models.AdminNote{}, err
	}
	notes := []models.AdminNote{}
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.Where("complaint_id = ?", complaintID).Order("created_at").Order("id").Find(&notes).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list admin notes: %w", err)
	}
	return notes, nil
}

// CreateAdminNote inserts a note. The author must be the acting admin.
func (s *Store) CreateAdminNote(ctx context.Context, actor Actor, n *models.AdminNote) error {
	if err := s.authorize(ctx, actor, gate.ActionInsert, policy.TableAdminNotes, n); err != nil {
		return err
	}
	if strings.TrimSpace(n.Note) == "" {
		return invalid(ErrEmptyNote)
	}
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		if err := requireComplaint(tx, n.ComplaintID); err != nil {
			return err
		}
		return tx.Create(n).Error
	})
	if err != nil {
		return fmt.Errorf("create admin note: %w", err)
	}
	return nil
}
