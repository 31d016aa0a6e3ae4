package handlers

import (
	"net/http"

	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/store"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	gw  *gateway.Gateway
	log *zap.Logger
}

func NewProfileHandler(gw *gateway.Gateway, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{gw: gw, log: orNop(log)}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	p, err := h.gw.Profile(r.Context(), actor, actor.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch store.ProfilePatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		badJSON(w)
		return
	}
	p, err := h.gw.UpdateOwnProfile(r.Context(), actorFrom(r), patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	p, err := h.gw.Profile(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
