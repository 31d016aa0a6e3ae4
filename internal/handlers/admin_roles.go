package handlers

import (
	"net/http"

	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/models"
	"go.uber.org/zap"
)

// AdminRoleHandler manages role assignments. Routes sit behind RequireAdmin;
// the store checks the admin policy again on every write.
type AdminRoleHandler struct {
	gw  *gateway.Gateway
	log *zap.Logger
}

func NewAdminRoleHandler(gw *gateway.Gateway, log *zap.Logger) *AdminRoleHandler {
	return &AdminRoleHandler{gw: gw, log: orNop(log)}
}

// List returns every assignment, or one account's with ?account_id=.
func (h *AdminRoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.gw.Roles(r.Context(), actorFrom(r), r.URL.Query().Get("account_id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

type grantRequest struct {
	AccountID string      `json:"account_id"`
	Role      models.Role `json:"role"`
}

// Grant assigns a role. Granting a held role returns the existing assignment.
func (h *AdminRoleHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	role, err := h.gw.GrantRole(r.Context(), actorFrom(r), req.AccountID, req.Role)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("role granted", zap.String("account_id", req.AccountID), zap.String("role", string(req.Role)))
	httpx.JSON(w, http.StatusOK, role)
}

func (h *AdminRoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteRole(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": r.PathValue("id")})
}

type changeRoleRequest struct {
	Role models.Role `json:"role"`
}

func (h *AdminRoleHandler) Change(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	role, err := h.gw.ChangeRole(r.Context(), actorFrom(r), r.PathValue("id"), req.Role)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}
