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

var ErrIncompleteAttachment = errors.New("attachment needs file name, storage path, url and mime type")

func (s *Store) ListAttachments(ctx context.Context, actor Actor, complaintID string) ([]models.Attachment, error) {
	ok, err := s.readable(ctx, actor, policy.TableAttachments)
	if err != nil || !ok {
		return []models.Attachment{}, err
	}
	attachments := []models.Attachment{}
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.Where("complaint_id = ?", complaintID).Order("created_at").Find(&attachments).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// AuthorizeAttachment checks, without writing, that actor may attach files to
// the complaint. Callers use it before putting bytes into blob storage.
func (s *Store) AuthorizeAttachment(ctx context.Context, actor Actor, complaintID string) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	var count int64
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.Model(&models.Complaint{}).Where("id = ?", complaintID).Count(&count).Error
	})
	if err != nil {
		return fmt.Errorf("load complaint: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: complaint", ErrNotFound)
	}
	return s.authorize(ctx, actor, gate.ActionInsert, policy.TableAttachments, &models.Attachment{ComplaintID: complaintID})
}

// CreateAttachment records a stored file against a complaint the actor owns.
func (s *Store) CreateAttachment(ctx context.Context, actor Actor, a *models.Attachment) error {
	if err := s.authorize(ctx, actor, gate.ActionInsert, policy.TableAttachments, a); err != nil {
		return err
	}
	if strings.TrimSpace(a.FileName) == "" || a.StoragePath == "" || a.FileURL == "" || a.MimeType == "" || a.FileSize < 0 {
		return invalid(ErrIncompleteAttachment)
	}
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}
