// Package gateway is the client data gateway: the operations a UI performs,
// each taking the acting account explicitly and delegating authorization to
// the store.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/internal/blob"
	"github.com/diewo77/go-complaints/internal/identity"
	"github.com/diewo77/go-complaints/internal/metrics"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/store"
	"github.com/diewo77/go-complaints/validation"
	"go.uber.org/zap"
)

type Gateway struct {
	store    *store.Store
	bucket   *blob.Bucket
	identity *identity.Service
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// New wires the gateway. m may be nil.
func New(st *store.Store, bucket *blob.Bucket, id *identity.Service, m *metrics.Metrics, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{store: st, bucket: bucket, identity: id, metrics: m, log: log.Named("gateway"), now: time.Now}
}

func (g *Gateway) Store() *store.Store { return g.store }

func (g *Gateway) Bucket() *blob.Bucket { return g.bucket }

// SignUp registers a new account.
func (g *Gateway) SignUp(ctx context.Context, in identity.SignUpInput) (*models.Account, error) {
	return g.identity.SignUp(ctx, in)
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*models.Account, error) {
	return g.identity.SignIn(ctx, email, password)
}

// SignOut ends the session. The caller clears the client credential; after
// this the token is rejected even if it is replayed.
func (g *Gateway) SignOut(ctx context.Context, session auth.Session) error {
	return g.identity.SignOut(ctx, session)
}

// ComplaintInput is the complaint form.
type ComplaintInput struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Category    string                   `json:"category"`
	Priority    models.ComplaintPriority `json:"priority"`
	IsAnonymous bool                     `json:"is_anonymous"`
}

func (in ComplaintInput) validate() error {
	v := validation.Violations{}
	validation.Required("title", in.Title, v)
	validation.MaxLen("title", in.Title, 255, v)
	validation.Required("category", in.Category, v)
	validation.MaxLen("category", in.Category, 100, v)
	validation.MaxLen("description", in.Description, 10000, v)
	validation.OneOf("priority", in.Priority, models.Priorities, v)
	return v.Err()
}

// ListComplaints lists the actor's own complaints, or every complaint when
// the actor is an admin. Newest first.
func (g *Gateway) ListComplaints(ctx context.Context, actor store.Actor, f store.ComplaintFilter) ([]models.Complaint, error) {
	if actor.Authenticated() && !g.store.IsAdmin(ctx, actor) {
		f.OwnerID = actor.ID
	}
	return g.store.ListComplaints(ctx, actor, f)
}

// Board lists complaints from every owner, as far as the read policy allows.
func (g *Gateway) Board(ctx context.Context, actor store.Actor, f store.ComplaintFilter) ([]models.Complaint, error) {
	return g.store.ListComplaints(ctx, actor, f)
}

// CreateComplaint files a complaint owned by the actor with status new.
func (g *Gateway) CreateComplaint(ctx context.Context, actor store.Actor, in ComplaintInput) (*models.Complaint, error) {
	if !actor.Authenticated() {
		return nil, store.ErrUnauthenticated
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &models.Complaint{
		OwnerID:     actor.ID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      models.StatusNew,
		IsAnonymous: in.IsAnonymous,
	}
	if err := g.store.CreateComplaint(ctx, actor, c); err != nil {
		return nil, err
	}
	g.metrics.ComplaintCreated()
	g.log.Info("complaint created", zap.String("complaint_id", c.ID), zap.String("owner_id", actor.ID))
	return c, nil
}

func (g *Gateway) GetComplaint(ctx context.Context, actor store.Actor, id string) (*models.Complaint, error) {
	return g.store.GetComplaint(ctx, actor, id)
}

func (g *Gateway) UpdateComplaint(ctx context.Context, actor store.Actor, id string, patch store.ComplaintPatch) (*models.Complaint, error) {
	return g.store.UpdateComplaint(ctx, actor, id, patch)
}

// ChangeStatus moves a complaint to status. Admin changes are recorded in
// the status history.
func (g *Gateway) ChangeStatus(ctx context.Context, actor store.Actor, id string, status models.ComplaintStatus, notes string) (*models.Complaint, *models.StatusHistory, error) {
	c, entry, err := g.store.ChangeStatus(ctx, actor, id, status, strings.TrimSpace(notes))
	if err != nil {
		return nil, nil, err
	}
	g.metrics.StatusChanged(string(status))
	return c, entry, nil
}

func (g *Gateway) Assign(ctx context.Context, actor store.Actor, id string, assignee *string) (*models.Complaint, error) {
	return g.store.AssignComplaint(ctx, actor, id, assignee)
}

func (g *Gateway) History(ctx context.Context, actor store.Actor, complaintID string) ([]models.StatusHistory, error) {
	return g.store.ListStatusHistory(ctx, actor, complaintID)
}

func (g *Gateway) Notes(ctx context.Context, actor store.Actor, complaintID string) ([]models.AdminNote, error) {
	return g.store.ListAdminNotes(ctx, actor, complaintID)
}

// AddNote records an admin note authored by the actor.
func (g *Gateway) AddNote(ctx context.Context, actor store.Actor, complaintID, text string) (*models.AdminNote, error) {
	n := &models.AdminNote{ComplaintID: complaintID, Note: strings.TrimSpace(text), AdminID: actor.ID}
	if err := g.store.CreateAdminNote(ctx, actor, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (g *Gateway) Profile(ctx context.Context, actor store.Actor, id string) (*models.Profile, error) {
	return g.store.GetProfile(ctx, actor, id)
}

// UpdateOwnProfile edits the actor's profile.
func (g *Gateway) UpdateOwnProfile(ctx context.Context, actor store.Actor, patch store.ProfilePatch) (*models.Profile, error) {
	v := validation.Violations{}
	if patch.FullName != nil {
		validation.MaxLen("full_name", *patch.FullName, 255, v)
	}
	if patch.Phone != nil {
		validation.MaxLen("phone", *patch.Phone, 50, v)
	}
	if patch.Batch != nil {
		validation.MaxLen("batch", *patch.Batch, 50, v)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return g.store.UpdateProfile(ctx, actor, actor.ID, patch)
}

func (g *Gateway) Roles(ctx context.Context, actor store.Actor, accountID string) ([]models.UserRole, error) {
	return g.store.ListRoles(ctx, actor, accountID)
}

func (g *Gateway) GrantRole(ctx context.Context, actor store.Actor, accountID string, role models.Role) (*models.UserRole, error) {
	return g.store.GrantRole(ctx, actor, accountID, role)
}

func (g *Gateway) DeleteRole(ctx context.Context, actor store.Actor, roleID string) error {
	return g.store.DeleteRole(ctx, actor, roleID)
}

func (g *Gateway) ChangeRole(ctx context.Context, actor store.Actor, roleID string, role models.Role) (*models.UserRole, error) {
	return g.store.ChangeRole(ctx, actor, roleID, role)
}

// DeleteObject removes a stored file. Only the account owning the key prefix may.
func (g *Gateway) DeleteObject(ctx context.Context, actor store.Actor, key string) error {
	return g.bucket.Delete(ctx, actor.ID, key)
}

// DeleteAccount removes an account with everything it owns, then its stored
// files. It runs in definer context and is meant for operators.
func (g *Gateway) DeleteAccount(ctx context.Context, accountID string) error {
	keys, err := g.identity.DeleteAccount(ctx, accountID)
	if err != nil {
		return err
	}
	g.store.Authorizer().InvalidateAccount(accountID)
	return g.bucket.Purge(ctx, keys...)
}
