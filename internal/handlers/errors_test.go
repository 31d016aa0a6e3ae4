package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/blob"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/identity"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/store"
	"github.com/diewo77/go-complaints/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_Classification(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{store.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("%w: %w", store.ErrPermissionDenied, gate.ErrUnauthorized), http.StatusForbidden, "forbidden"},
		{blob.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("complaint: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{identity.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{blob.ErrTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
		{blob.ErrTypeNotAllowed, http.StatusUnsupportedMediaType, "file_type_not_allowed"},
		{blob.ErrInvalidKey, http.StatusBadRequest, "invalid_path"},
		{fmt.Errorf("%w: %w", store.ErrInvalid, models.ErrNegativeUpvotes), http.StatusBadRequest, "invalid_input"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, nil, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error)
		})
	}
}

func TestWriteError_InternalHidesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, errors.New("pq: relation complaints secret"))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestWriteError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, validation.Violations{"title": "required"}.Err())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"validation_failed","details":{"title":"required"}}`, rec.Body.String())
}

func TestWriteError_PartialUpload(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, &gateway.UploadError{
		Uploaded:   []models.Attachment{{ID: "a1", FileName: "one.txt"}},
		FailedFile: "two.txt",
		Err:        blob.ErrTypeNotAllowed,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error   string        `json:"error"`
		Details uploadFailure `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "upload_incomplete", body.Error)
	assert.Equal(t, "two.txt", body.Details.FailedFile)
	assert.Equal(t, "file_type_not_allowed", body.Details.Reason)
	assert.Len(t, body.Details.Uploaded, 1)
}

func TestActorFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, actorFrom(r).Authenticated())

	r = r.WithContext(auth.WithSession(r.Context(), auth.Session{AccountID: "acc-1"}))
	assert.Equal(t, store.Actor{ID: "acc-1"}, actorFrom(r))
}

func TestFilterFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/complaints?status=resolved&category=IT&limit=5000&offset=-3", nil)
	f := filterFrom(r)
	assert.Equal(t, models.StatusResolved, f.Status)
	assert.Equal(t, "IT", f.Category)
	assert.Equal(t, 200, f.Limit)
	assert.Zero(t, f.Offset)
}
