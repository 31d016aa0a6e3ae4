package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/blob"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/identity"
	"github.com/diewo77/go-complaints/internal/store"
	"github.com/diewo77/go-complaints/validation"
	"go.uber.org/zap"
)

// actorFrom returns the acting account of the request; the zero Actor when signed out.
func actorFrom(r *http.Request) store.Actor {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return store.Actor{}
	}
	return store.Actor{ID: s.AccountID}
}

// uploadFailure is the body of a partially completed upload.
type uploadFailure struct {
	Uploaded   any    `json:"uploaded"`
	FailedFile string `json:"failed_file"`
	Reason     string `json:"reason"`
}

// writeError maps the error taxonomy onto HTTP. Messages never carry row data.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *validation.Error
	var uerr *gateway.UploadError
	switch {
	case errors.As(err, &uerr):
		httpx.JSONError(w, http.StatusConflict, "upload_incomplete", uploadFailure{
			Uploaded:   uerr.Uploaded,
			FailedFile: uerr.FailedFile,
			Reason:     errorCode(uerr.Err),
		})
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Violations)
	default:
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			log.Error("request failed", zap.Error(err))
			httpx.JSONError(w, status, code, nil)
			return
		}
		var details any
		if status == http.StatusBadRequest {
			details = err.Error()
		}
		httpx.JSONError(w, status, code, details)
	}
}

func errorCode(err error) string {
	_, code := classify(err)
	return code
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrUnauthenticated), errors.Is(err, blob.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, gate.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, identity.ErrAccountNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, blob.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, blob.ErrTypeNotAllowed):
		return http.StatusUnsupportedMediaType, "file_type_not_allowed"
	case errors.Is(err, blob.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_path"
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest, "invalid_input"
	}
	return http.StatusInternalServerError, "internal_error"
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

func badJSON(w http.ResponseWriter) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
}
