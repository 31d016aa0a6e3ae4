package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/diewo77/go-complaints/httpx"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/store"
	"go.uber.org/zap"
)

const (
	maxUploadFiles   = 10
	multipartMemory  = 8 << 20
	maxUploadRequest = 128 << 20
)

type ComplaintHandler struct {
	gw  *gateway.Gateway
	log *zap.Logger
}

func NewComplaintHandler(gw *gateway.Gateway, log *zap.Logger) *ComplaintHandler {
	return &ComplaintHandler{gw: gw, log: orNop(log)}
}

func filterFrom(r *http.Request) store.ComplaintFilter {
	q := r.URL.Query()
	f := store.ComplaintFilter{
		OwnerID:    q.Get("owner_id"),
		AssignedTo: q.Get("assigned_to"),
		Status:     models.ComplaintStatus(q.Get("status")),
		Category:   q.Get("category"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = min(n, 200)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		f.Offset = n
	}
	return f
}

// List returns the actor's complaints (all of them for admins).
// With scope=all it returns the public board instead.
func (h *ComplaintHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	f := filterFrom(r)
	var (
		list []models.Complaint
		err  error
	)
	if r.URL.Query().Get("scope") == "all" {
		list, err = h.gw.Board(r.Context(), actor, f)
	} else {
		list, err = h.gw.ListComplaints(r.Context(), actor, f)
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in gateway.ComplaintInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badJSON(w)
		return
	}
	c, err := h.gw.CreateComplaint(r.Context(), actorFrom(r), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *ComplaintHandler) View(w http.ResponseWriter, r *http.Request) {
	c, err := h.gw.GetComplaint(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ComplaintHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch store.ComplaintPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		badJSON(w)
		return
	}
	c, err := h.gw.UpdateComplaint(r.Context(), actorFrom(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

type statusRequest struct {
	Status models.ComplaintStatus `json:"status"`
	Notes  string                 `json:"notes"`
}

type statusResponse struct {
	Complaint *models.Complaint     `json:"complaint"`
	History   *models.StatusHistory `json:"history,omitempty"`
}

func (h *ComplaintHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	c, entry, err := h.gw.ChangeStatus(r.Context(), actorFrom(r), r.PathValue("id"), req.Status, req.Notes)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statusResponse{Complaint: c, History: entry})
}

type assignRequest struct {
	AssignedTo *string `json:"assigned_to"`
}

func (h *ComplaintHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	c, err := h.gw.Assign(r.Context(), actorFrom(r), r.PathValue("id"), req.AssignedTo)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Upload accepts multipart "files" parts and stores them in order.
func (h *ComplaintHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) > maxUploadFiles {
		httpx.JSONError(w, http.StatusBadRequest, "too_many_files", maxUploadFiles)
		return
	}
	uploads := make([]gateway.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, fileUpload(fh))
	}
	saved, err := h.gw.UploadAttachments(r.Context(), actorFrom(r), r.PathValue("id"), uploads)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saved)
}

func fileUpload(fh *multipart.FileHeader) gateway.Upload {
	return gateway.Upload{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func (h *ComplaintHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gw.History(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *ComplaintHandler) Notes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.gw.Notes(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, notes)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *ComplaintHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	n, err := h.gw.AddNote(r.Context(), actorFrom(r), r.PathValue("id"), req.Note)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, n)
}
