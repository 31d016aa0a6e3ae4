package main

import (
	"net/http"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/handlers"
	"github.com/diewo77/go-complaints/internal/logging"
	"github.com/diewo77/go-complaints/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *handlers.RouterConfig
	metrics   *metrics.Metrics
	log       *zap.Logger
	handler   http.Handler
}

// NewApp creates the application with all routes and middleware configured.
func NewApp(db *gorm.DB, routerCfg *handlers.RouterConfig, m *metrics.Metrics, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		metrics:   m,
		log:       log,
	}
	app.setupRoutes()

	// Outermost first: request log, metrics, then session resolution.
	var h http.Handler = routerCfg.Sessions.Middleware(app.mux)
	if m != nil {
		h = m.Middleware(app.mux)(h)
	}
	app.handler = logging.Middleware(log)(h)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler
	fh := a.routerCfg.FileHandler

	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.healthz)
	if a.metrics != nil {
		a.mux.Handle("GET /metrics", a.metrics.Handler())
	}

	a.mux.HandleFunc("POST /auth/signup", ah.SignUp)
	a.mux.HandleFunc("POST /auth/signin", ah.SignIn)
	a.mux.HandleFunc("POST /auth/signout", ah.SignOut)
	a.mux.HandleFunc("GET /auth/session", ah.Session)

	a.mux.HandleFunc("GET /files/{path...}", fh.Serve)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes; row-level rules are enforced by the store
	// ─────────────────────────────────────────────────────────────────────────
	ph := a.routerCfg.ProfileHandler
	ch := a.routerCfg.ComplaintHandler

	a.mux.Handle("GET /profiles/me", a.requireAuth(ph.Me))
	a.mux.Handle("PATCH /profiles/me", a.requireAuth(ph.UpdateMe))
	a.mux.Handle("GET /profiles/{id}", a.requireAuth(ph.View))

	a.mux.Handle("GET /complaints", a.requireAuth(ch.List))
	a.mux.Handle("POST /complaints", a.requireAuth(ch.Create))
	a.mux.Handle("GET /complaints/{id}", a.requireAuth(ch.View))
	a.mux.Handle("PATCH /complaints/{id}", a.requireAuth(ch.Update))
	a.mux.Handle("POST /complaints/{id}/status", a.requireAuth(ch.ChangeStatus))
	a.mux.Handle("POST /complaints/{id}/assign", a.requireAuth(ch.Assign))
	a.mux.Handle("POST /complaints/{id}/attachments", a.requireAuth(ch.Upload))
	a.mux.Handle("GET /complaints/{id}/history", a.requireAuth(ch.History))
	a.mux.Handle("GET /complaints/{id}/notes", a.requireAuth(ch.Notes))
	a.mux.Handle("POST /complaints/{id}/notes", a.requireAuth(ch.AddNote))

	a.mux.Handle("POST /files/delete", a.requireAuth(fh.Delete))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (require the admin role)
	// ─────────────────────────────────────────────────────────────────────────
	rh := a.routerCfg.AdminRoleHandler

	a.mux.Handle("GET /admin/roles", a.requireAdmin(rh.List))
	a.mux.Handle("POST /admin/roles", a.requireAdmin(rh.Grant))
	a.mux.Handle("POST /admin/roles/{id}", a.requireAdmin(rh.Change))
	a.mux.Handle("POST /admin/roles/{id}/delete", a.requireAdmin(rh.Delete))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// requireAuth answers 401 when the request carries no valid session.
func (a *App) requireAuth(next http.HandlerFunc) http.Handler {
	return auth.RequireAuth(next)
}

// requireAdmin fails fast for non-admins; the store checks again.
func (a *App) requireAdmin(next http.HandlerFunc) http.Handler {
	return a.routerCfg.Authz.RequireAdmin()(next)
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

// health is liveness only.
func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// healthz also pings the database.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": a.db.Dialector.Name()})
}
