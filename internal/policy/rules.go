package policy

import (
	"context"

	"github.com/diewo77/go-complaints/gate"
)

// Ownable is implemented by rows that belong to an account.
type Ownable interface {
	OwnerAccountID() string
}

// Authored is implemented by rows whose author must be the acting account.
type Authored interface {
	AuthorAccountID() string
}

// ParentRef is implemented by rows that hang off a complaint.
type ParentRef interface {
	ParentComplaintID() string
}

// OwnershipPolicy allows the action when the row's owner is the subject.
// Rows that are not Ownable are denied.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy { return &OwnershipPolicy{} }

func (p *OwnershipPolicy) Can(_ context.Context, accountID string, _ gate.Action, row any) bool {
	ownable, ok := row.(Ownable)
	if !ok {
		return false
	}
	return ownable.OwnerAccountID() == accountID
}

// AuthorPolicy allows the action when the row's author is the subject.
type AuthorPolicy struct{}

func NewAuthorPolicy() *AuthorPolicy { return &AuthorPolicy{} }

func (p *AuthorPolicy) Can(_ context.Context, accountID string, _ gate.Action, row any) bool {
	authored, ok := row.(Authored)
	if !ok {
		return false
	}
	return authored.AuthorAccountID() == accountID
}

// ParentOwnerPolicy allows the action when the subject owns the parent complaint.
type ParentOwnerPolicy struct {
	ownerOf func(ctx context.Context, complaintID string) (string, error)
}

func NewParentOwnerPolicy(ownerOf func(ctx context.Context, complaintID string) (string, error)) *ParentOwnerPolicy {
	return &ParentOwnerPolicy{ownerOf: ownerOf}
}

func (p *ParentOwnerPolicy) Can(ctx context.Context, accountID string, _ gate.Action, row any) bool {
	ref, ok := row.(ParentRef)
	if !ok {
		return false
	}
	owner, err := p.ownerOf(ctx, ref.ParentComplaintID())
	if err != nil || owner == "" {
		return false
	}
	return owner == accountID
}

// AdminBypassPolicy wraps another policy and always allows admins.
type AdminBypassPolicy struct {
	inner   gate.Policy[string]
	isAdmin func(ctx context.Context, accountID string) bool
}

func NewAdminBypassPolicy(inner gate.Policy[string], isAdmin func(ctx context.Context, accountID string) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner, isAdmin: isAdmin}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, accountID string, action gate.Action, row any) bool {
	if p.isAdmin(ctx, accountID) {
		return true
	}
	return p.inner.Can(ctx, accountID, action, row)
}

// ActionRules dispatches to a per-action policy.
// Actions without a rule are decided by the profile permission alone.
type ActionRules map[gate.Action]gate.Policy[string]

func (r ActionRules) Can(ctx context.Context, accountID string, action gate.Action, row any) bool {
	p, ok := r[action]
	if !ok {
		return true
	}
	return p.Can(ctx, accountID, action, row)
}
