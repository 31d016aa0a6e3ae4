package policy

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Authorizer is the configured HybridGate for the complaint desk: role profiles
// decide table:action and per-table rules decide row-dependent predicates.
type Authorizer struct {
	Gate          *gate.HybridGate[string]
	CacheResolver *gate.CachedResolver[string]
	Roles         *DBRoleResolver
	log           *zap.Logger
}

// NewAuthorizer wires the role resolver, its cache and every table rule.
// A cacheTTL <= 0 resolves roles on every check. The admin role is never
// taken from the cache.
func NewAuthorizer(db *gorm.DB, cacheTTL time.Duration, log *zap.Logger) *Authorizer {
	if log == nil {
		log = zap.NewNop()
	}
	roles := NewDBRoleResolver(db)
	cached := gate.NewCachedResolver[string](roles, cacheTTL)
	a := &Authorizer{
		Gate:          gate.NewHybridGate[string](&adminResolver{cached: cached, roles: roles}),
		CacheResolver: cached,
		Roles:         roles,
		log:           log,
	}
	a.registerRules()
	return a
}

func (a *Authorizer) registerRules() {
	owner := NewOwnershipPolicy()

	a.Gate.Register(TableProfiles, ActionRules{
		gate.ActionUpdate: owner,
	})
	a.Gate.Register(TableComplaints, ActionRules{
		gate.ActionInsert: owner,
		gate.ActionUpdate: NewAdminBypassPolicy(owner, a.IsAdmin),
	})
	a.Gate.Register(TableAttachments, ActionRules{
		gate.ActionInsert: NewParentOwnerPolicy(a.Roles.ComplaintOwner),
	})
	a.Gate.Register(TableAdminNotes, ActionRules{
		gate.ActionInsert: NewAuthorPolicy(),
	})
}

// Authorize returns nil when accountID may run action on row of table.
func (a *Authorizer) Authorize(ctx context.Context, accountID string, action gate.Action, table string, row any) error {
	err := a.Gate.Authorize(ctx, accountID, action, table, row)
	if err != nil {
		a.log.Debug("authorization denied",
			zap.String("account_id", accountID),
			zap.String("table", table),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
	return err
}

func (a *Authorizer) Can(ctx context.Context, accountID string, action gate.Action, table string, row any) bool {
	return a.Authorize(ctx, accountID, action, table, row) == nil
}

// CanProfile checks only the table-level permission.
func (a *Authorizer) CanProfile(ctx context.Context, accountID string, action gate.Action, table string) bool {
	return a.Gate.CanProfile(ctx, accountID, action, table)
}

// HasRole is the has_role predicate.
func (a *Authorizer) HasRole(ctx context.Context, accountID string, role models.Role) (bool, error) {
	return a.Roles.HasRole(ctx, accountID, role)
}

// IsAdmin is HasRole(admin) with lookup errors treated as "no".
func (a *Authorizer) IsAdmin(ctx context.Context, accountID string) bool {
	ok, err := a.Roles.HasRole(ctx, accountID, models.RoleAdmin)
	if err != nil {
		a.log.Warn("has_role lookup failed", zap.String("account_id", accountID), zap.Error(err))
		return false
	}
	return ok
}

// InvalidateAccount clears the cached profile of one account.
// Call it whenever that account's roles change.
func (a *Authorizer) InvalidateAccount(accountID string) {
	a.CacheResolver.Invalidate(accountID)
}

func (a *Authorizer) InvalidateAll() {
	a.CacheResolver.InvalidateAll()
}

// RequireAdmin returns middleware that rejects callers without the admin role.
// The store enforces the same rule; this only fails fast at the edge.
func (a *Authorizer) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := auth.SessionFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthenticated", nil)
				return
			}
			if !a.IsAdmin(r.Context(), sess.AccountID) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
