package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, issued, err := m.Issue("acc-1", "s@example.com")
	require.NoError(t, err)

	s, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", s.AccountID)
	assert.Equal(t, "s@example.com", s.Email)
	assert.Equal(t, issued.TokenID, s.TokenID)
	assert.WithinDuration(t, issued.ExpiresAt, s.ExpiresAt, time.Second)
}

func TestManager_RejectsForeignAndExpiredTokens(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	other := NewManager("other-secret", time.Hour)

	token, _, err := other.Issue("acc-1", "s@example.com")
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }
	expired, _, err := m.Issue("acc-1", "s@example.com")
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware_CookieAndBearer(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	var got Session
	h := m.Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	token, _, err := m.CreateSession(rec, "acc-1", "s@example.com")
	require.NoError(t, err)
	cookie := rec.Result().Cookies()[0]
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "acc-1", got.AccountID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMiddleware_VerifierRejects(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	m.SetVerifier(func(ctx context.Context, s Session) bool { return false })
	h := m.Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	token, _, err := m.Issue("acc-1", "s@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestClearSession(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	rec := httptest.NewRecorder()
	m.ClearSession(rec)
	c := rec.Result().Cookies()[0]
	assert.Equal(t, sessionCookieName, c.Name)
	assert.Empty(t, c.Value)
}
