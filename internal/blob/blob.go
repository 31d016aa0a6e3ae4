// Package blob is the complaint-attachments bucket. Objects are keyed
// "<owner-account-id>/<complaint-id>/<unix-nanos>-<name>"; anyone signed in may
// upload, only the account named by the first key segment may delete.
package blob

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/config"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const BucketName = "complaint-attachments"

// sniffLen matches the mimetype package's default read limit.
const sniffLen = 3072

var (
	ErrTooLarge        = errors.New("blob: object exceeds size limit")
	ErrTypeNotAllowed  = errors.New("blob: content type not allowed")
	ErrInvalidKey      = errors.New("blob: invalid object key")
	ErrForbidden       = fmt.Errorf("blob: forbidden: %w", gate.ErrUnauthorized)
	ErrUnauthenticated = errors.New("blob: unauthenticated")
)

// Backend stores object bytes.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Limits are enforced on every upload. Zero MaxBytes or empty AllowedTypes disable the check.
type Limits struct {
	MaxBytes     int64
	AllowedTypes []string
}

// Object describes a stored upload.
type Object struct {
	Key      string
	URL      string
	Size     int64
	MimeType string
}

type Bucket struct {
	backend    Backend
	limits     Limits
	publicBase string
	gate       *gate.Gate[string]
	log        *zap.Logger
}

func New(backend Backend, limits Limits, publicBaseURL string, log *zap.Logger) *Bucket {
	if log == nil {
		log = zap.NewNop()
	}
	g := gate.NewGate[string]()
	g.Register(BucketName, gate.PolicyFunc[string](objectPolicy))
	return &Bucket{
		backend:    backend,
		limits:     limits,
		publicBase: strings.TrimRight(publicBaseURL, "/"),
		gate:       g,
		log:        log.Named("blob"),
	}
}

// Open builds the bucket described by cfg.
func Open(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*Bucket, error) {
	var backend Backend
	switch cfg.Backend {
	case "s3":
		s3b, err := NewS3(S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		backend = s3b
	default:
		local, err := NewLocal(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		backend = local
	}
	limits := Limits{MaxBytes: cfg.MaxBytes, AllowedTypes: cfg.AllowedTypes}
	return New(backend, limits, cfg.PublicBaseURL, log), nil
}

func (b *Bucket) Backend() Backend { return b.backend }

func (b *Bucket) Limits() Limits { return b.limits }

// objectPolicy: uploads and reads need only a subject; deletes need the
// subject to own the key's first segment.
func objectPolicy(_ context.Context, subject string, action gate.Action, row any) bool {
	switch action {
	case gate.ActionSelect, gate.ActionInsert:
		return true
	case gate.ActionDelete:
		key, ok := row.(string)
		return ok && OwnerOf(key) == subject
	}
	return false
}

func (b *Bucket) authorize(ctx context.Context, actorID string, action gate.Action, key string) error {
	err := b.gate.Authorize(ctx, actorID, action, BucketName, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gate.ErrUnauthenticated):
		return ErrUnauthenticated
	default:
		return ErrForbidden
	}
}

// CheckSize rejects a declared size over the limit before any bytes are read.
func (b *Bucket) CheckSize(size int64) error {
	if b.limits.MaxBytes > 0 && size > b.limits.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, size, b.limits.MaxBytes)
	}
	return nil
}

// Put stores r under key for actorID. The content type is sniffed from the
// bytes, never taken from the client.
func (b *Bucket) Put(ctx context.Context, actorID, key string, r io.Reader) (*Object, error) {
	if err := b.authorize(ctx, actorID, gate.ActionInsert, key); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("blob: read upload: %w", err)
	}
	contentType := mediaType(mimetype.Detect(head))
	if !b.allowed(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotAllowed, contentType)
	}

	cr := &countingReader{r: br, max: b.limits.MaxBytes}
	if cr.max > 0 {
		cr.r = io.LimitReader(br, cr.max+1)
	}
	if err := b.backend.Put(ctx, key, cr, contentType); err != nil {
		if errors.Is(err, ErrTooLarge) || cr.exceeded() {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, b.limits.MaxBytes)
		}
		return nil, fmt.Errorf("blob: put %s: %w", key, err)
	}
	if cr.exceeded() {
		// Backend swallowed the read error; the object must not stay.
		_ = b.backend.Delete(ctx, key)
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, b.limits.MaxBytes)
	}

	b.log.Debug("object stored", zap.String("key", key), zap.Int64("bytes", cr.n), zap.String("type", contentType))
	return &Object{Key: key, URL: b.URL(key), Size: cr.n, MimeType: contentType}, nil
}

// Delete removes key. Only the owner named by its first segment may do so.
func (b *Bucket) Delete(ctx context.Context, actorID, key string) error {
	if err := b.authorize(ctx, actorID, gate.ActionDelete, key); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := b.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	return nil
}

// Purge removes keys without an ownership check. It is for account deletion,
// which already runs in definer context.
func (b *Bucket) Purge(ctx context.Context, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := b.backend.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("blob: purge %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// URL is the public address of key.
func (b *Bucket) URL(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return b.publicBase + "/" + strings.Join(segs, "/")
}

func (b *Bucket) allowed(contentType string) bool {
	if len(b.limits.AllowedTypes) == 0 {
		return true
	}
	for _, t := range b.limits.AllowedTypes {
		if strings.EqualFold(strings.TrimSpace(t), contentType) {
			return true
		}
	}
	return false
}

func mediaType(m *mimetype.MIME) string {
	mt, _, err := mime.ParseMediaType(m.String())
	if err != nil {
		return m.String()
	}
	return mt
}

type countingReader struct {
	r   io.Reader
	n   int64
	max int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.exceeded() {
		return n, ErrTooLarge
	}
	return n, err
}

func (c *countingReader) exceeded() bool { return c.max > 0 && c.n > c.max }
