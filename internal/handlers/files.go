package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/blob"
	"github.com/diewo77/go-complaints/internal/gateway"
	"go.uber.org/zap"
)

// FileHandler serves the local bucket's public URLs and deletes objects.
type FileHandler struct {
	gw    *gateway.Gateway
	local *blob.Local
	log   *zap.Logger
}

// NewFileHandler serves files only when the bucket is backed by local disk.
func NewFileHandler(gw *gateway.Gateway, log *zap.Logger) *FileHandler {
	local, _ := gw.Bucket().Backend().(*blob.Local)
	return &FileHandler{gw: gw, local: local, log: orNop(log)}
}

// Serve is public, like the bucket's URLs.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	f, err := h.local.Open(r.PathValue("path"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, blob.ErrInvalidKey) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		writeError(w, h.log, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

type deleteFileRequest struct {
	Path string `json:"path"`
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteFileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	if err := h.gw.DeleteObject(r.Context(), actorFrom(r), req.Path); err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": req.Path})
}
