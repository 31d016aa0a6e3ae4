package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/diewo77/go-complaints/internal/blob"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/store"
	"go.uber.org/zap"
)

var ErrNoFiles = errors.New("no files to upload")

// Upload is one file of a multi-file upload.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// UploadError reports a multi-file upload that stopped part way. Uploaded
// holds the attachments persisted before FailedFile failed; they are kept.
type UploadError struct {
	Uploaded   []models.Attachment
	FailedFile string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q failed after %d file(s): %v", e.FailedFile, len(e.Uploaded), e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// UploadAttachments stores files one after the other against an existing
// complaint. Each row is inserted only after its bytes are stored. The first
// failure stops the loop and is returned as *UploadError.
func (g *Gateway) UploadAttachments(ctx context.Context, actor store.Actor, complaintID string, uploads []Upload) ([]models.Attachment, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalid, ErrNoFiles)
	}
	c, err := g.store.GetComplaint(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	if err := g.store.AuthorizeAttachment(ctx, actor, c.ID); err != nil {
		return nil, err
	}

	saved := make([]models.Attachment, 0, len(uploads))
	for _, u := range uploads {
		a, err := g.uploadOne(ctx, actor, c, u)
		if err != nil {
			g.metrics.UploadFailed()
			g.log.Warn("attachment upload failed",
				zap.String("complaint_id", c.ID),
				zap.String("file", u.Name),
				zap.Int("uploaded", len(saved)),
				zap.Error(err),
			)
			return saved, &UploadError{Uploaded: saved, FailedFile: u.Name, Err: err}
		}
		g.metrics.UploadSucceeded(a.FileSize)
		saved = append(saved, *a)
	}
	return saved, nil
}

func (g *Gateway) uploadOne(ctx context.Context, actor store.Actor, c *models.Complaint, u Upload) (*models.Attachment, error) {
	if err := g.bucket.CheckSize(u.Size); err != nil {
		return nil, err
	}
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", u.Name, err)
	}
	defer rc.Close()

	key := blob.ObjectKey(c.OwnerID, c.ID, u.Name, g.now())
	obj, err := g.bucket.Put(ctx, actor.ID, key, rc)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = blob.SanitizeName(name)
	}
	a := &models.Attachment{
		ComplaintID: c.ID,
		FileName:    name,
		StoragePath: obj.Key,
		FileURL:     obj.URL,
		FileSize:    obj.Size,
		MimeType:    obj.MimeType,
	}
	if err := g.store.CreateAttachment(ctx, actor, a); err != nil {
		if derr := g.bucket.Delete(ctx, actor.ID, key); derr != nil {
			g.log.Warn("orphaned object", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}
	return a, nil
}
