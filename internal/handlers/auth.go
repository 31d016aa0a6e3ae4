package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/identity"
	"github.com/diewo77/go-complaints/internal/models"
	"go.uber.org/zap"
)

type AuthHandler struct {
	gw       *gateway.Gateway
	sessions *auth.Manager
	log      *zap.Logger
}

func NewAuthHandler(gw *gateway.Gateway, sessions *auth.Manager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{gw: gw, sessions: sessions, log: orNop(log)}
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Account       *accountView  `json:"account,omitempty"`
	Token         string        `json:"token,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	Roles         []models.Role `json:"roles,omitempty"`
	IsAdmin       bool          `json:"is_admin"`
}

type accountView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) start(w http.ResponseWriter, status int, a *models.Account) {
	token, s, err := h.sessions.CreateSession(w, a.ID, a.Email)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, status, sessionResponse{
		Authenticated: true,
		Account:       &accountView{ID: a.ID, Email: a.Email},
		Token:         token,
		ExpiresAt:     &s.ExpiresAt,
	})
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in identity.SignUpInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badJSON(w)
		return
	}
	a, err := h.gw.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.start(w, http.StatusCreated, a)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badJSON(w)
		return
	}
	a, err := h.gw.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.start(w, http.StatusOK, a)
}

// SignOut revokes the current token, clears the cookie and answers with the
// signed-out view. Signing out without a session is not an error.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if s, ok := auth.SessionFromContext(r.Context()); ok {
		if err := h.gw.SignOut(r.Context(), s); err != nil {
			writeError(w, h.log, err)
			return
		}
	}
	h.sessions.ClearSession(w)
	httpx.JSON(w, http.StatusOK, sessionResponse{Authenticated: false})
}

// Session describes the current session, including the held roles.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		httpx.JSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}
	actor := actorFrom(r)
	assignments, err := h.gw.Roles(r.Context(), actor, actor.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	roles := make([]models.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Role)
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		Account:       &accountView{ID: s.AccountID, Email: s.Email},
		ExpiresAt:     &s.ExpiresAt,
		Roles:         roles,
		IsAdmin:       h.gw.Store().IsAdmin(r.Context(), actor),
	})
}
