// Package store is the authorization and lifecycle layer over the relational
// schema. Every operation takes the acting account explicitly and evaluates
// the row-level policy for (actor, table, action, row) before touching data.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated  = errors.New("store: unauthenticated")
	ErrPermissionDenied = fmt.Errorf("store: permission denied: %w", gate.ErrUnauthorized)
	ErrNotFound         = errors.New("store: not found")
	ErrInvalid          = errors.New("store: invalid input")
)

// Actor is the authenticated account performing an operation.
// The zero Actor is unauthenticated.
type Actor struct {
	ID string
}

func (a Actor) Authenticated() bool { return a.ID != "" }

// Store runs actor-scoped operations against the schema.
type Store struct {
	db    *gorm.DB
	authz *policy.Authorizer
	log   *zap.Logger
}

func New(db *gorm.DB, authz *policy.Authorizer, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, authz: authz, log: log.Named("store")}
}

// Authorizer exposes the policy engine, e.g. for has_role checks at the edge.
func (s *Store) Authorizer() *policy.Authorizer { return s.authz }

// IsAdmin is has_role(actor, admin).
func (s *Store) IsAdmin(ctx context.Context, actor Actor) bool {
	return actor.Authenticated() && s.authz.IsAdmin(ctx, actor.ID)
}

// withActor runs fn in a transaction. On PostgreSQL the actor is published to
// the row-level security policies through the app.account_id setting.
func (s *Store) withActor(ctx context.Context, actor Actor, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT set_config('app.account_id', ?, true)", actor.ID).Error; err != nil {
				return fmt.Errorf("set actor: %w", err)
			}
		}
		return fn(tx)
	})
}

// authorize maps a policy decision onto the store's error taxonomy.
// The returned error never carries row data.
func (s *Store) authorize(ctx context.Context, actor Actor, action gate.Action, table string, row any) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	err := s.authz.Authorize(ctx, actor.ID, action, table, row)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gate.ErrUnauthenticated):
		return ErrUnauthenticated
	default:
		return fmt.Errorf("%w: %s on %s", ErrPermissionDenied, action, table)
	}
}

// readable reports whether actor may select from table at all. A false result
// means reads are filtered to nothing, not rejected.
func (s *Store) readable(ctx context.Context, actor Actor, table string) (bool, error) {
	if !actor.Authenticated() {
		return false, ErrUnauthenticated
	}
	return s.authz.CanProfile(ctx, actor.ID, gate.ActionSelect, table), nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
