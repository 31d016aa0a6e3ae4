// Package auth issues and verifies signed session tokens and carries the
// resulting Session through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

const (
	sessionCookieName = "session"
	sessionCtxKey     = ctxKey("session")
	issuer            = "go-complaints"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrNoToken      = errors.New("no session token")
)

// Session is the authenticated identity behind a request.
type Session struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is the JWT payload. Subject holds the account id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier is an optional callback to validate that a session is still allowed,
// e.g. the account exists and the token was not revoked.
type Verifier func(ctx context.Context, s Session) bool

// Manager signs and parses HS256 session tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	secure   bool
	verifier Verifier
	now      func() time.Time
}

// NewManager creates a manager. secret must not be empty.
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// SetVerifier configures the verifier used by Middleware.
func (m *Manager) SetVerifier(v Verifier) { m.verifier = v }

// SetSecureCookies marks issued cookies Secure.
func (m *Manager) SetSecureCookies(secure bool) { m.secure = secure }

// Issue signs a new token for the account.
func (m *Manager) Issue(accountID, email string) (string, Session, error) {
	now := m.now()
	s := Session{
		AccountID: accountID,
		Email:     email,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   accountID,
			ID:        s.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session: %w", err)
	}
	return token, s, nil
}

// Parse validates a token and returns its session.
func (m *Manager) Parse(token string) (Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	s := Session{AccountID: claims.Subject, Email: claims.Email, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// CreateSession issues a token and sets it as an HttpOnly cookie.
// The token is returned too so API clients can use a Bearer header instead.
func (m *Manager) CreateSession(w http.ResponseWriter, accountID, email string) (string, Session, error) {
	token, s, err := m.Issue(accountID, email)
	if err != nil {
		return "", Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
	})
	return token, s, nil
}

// ClearSession deletes the session cookie.
func (m *Manager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true, Secure: m.secure, SameSite: http.SameSiteLaxMode})
}

// TokenFromRequest returns the Bearer token, falling back to the cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && token != "" {
			return strings.TrimSpace(token), nil
		}
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoToken
	}
	return c.Value, nil
}

// ParseRequest validates the request's token.
func (m *Manager) ParseRequest(r *http.Request) (Session, bool) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return Session{}, false
	}
	s, err := m.Parse(token)
	if err != nil {
		return Session{}, false
	}
	return s, true
}

// WithSession stores the session in context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// SessionFromContext extracts the session.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(Session)
	if !ok || s.AccountID == "" {
		return Session{}, false
	}
	return s, true
}

// Middleware attaches the session to the request context if present and allowed.
// A session the verifier rejects is cleared and the request continues anonymous.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := m.ParseRequest(r); ok {
			if m.verifier != nil && !m.verifier(r.Context(), s) {
				m.ClearSession(w)
			} else {
				r = r.WithContext(WithSession(r.Context(), s))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth returns 401 JSON when no session is attached.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"unauthenticated"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}
