package handlers

import (
	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/policy"
	"go.uber.org/zap"
)

// RouterConfig bundles every handler and the authorization pieces the
// router needs.
type RouterConfig struct {
	Sessions *auth.Manager
	Authz    *policy.Authorizer

	AuthHandler      *AuthHandler
	ComplaintHandler *ComplaintHandler
	ProfileHandler   *ProfileHandler
	AdminRoleHandler *AdminRoleHandler
	FileHandler      *FileHandler
}

func NewRouterConfig(gw *gateway.Gateway, sessions *auth.Manager, log *zap.Logger) *RouterConfig {
	log = orNop(log).Named("http")
	return &RouterConfig{
		Sessions:         sessions,
		Authz:            gw.Store().Authorizer(),
		AuthHandler:      NewAuthHandler(gw, sessions, log),
		ComplaintHandler: NewComplaintHandler(gw, log),
		ProfileHandler:   NewProfileHandler(gw, log),
		AdminRoleHandler: NewAdminRoleHandler(gw, log),
		FileHandler:      NewFileHandler(gw, log),
	}
}
