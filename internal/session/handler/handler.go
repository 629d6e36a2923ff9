// Package handler exposes the wizard over HTTP. It stays thin: decode, call the
// session service, translate errors.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kyogisho/internal/document"
	"kyogisho/internal/extract"
	"kyogisho/internal/platform/middleware"
	"kyogisho/internal/session"
	dErrors "kyogisho/pkg/domain-errors"
	"kyogisho/pkg/platform/httputil"
	"kyogisho/pkg/requestcontext"
)

// Service defines the session operations the handler depends on.
type Service interface {
	Create(ctx context.Context) session.Snapshot
	Get(ctx context.Context, id string) (session.Snapshot, error)
	Delete(ctx context.Context, id string) error
	Extract(ctx context.Context, id string, file extract.File) (session.Snapshot, error)
	StartManual(ctx context.Context, id string) (session.Snapshot, error)
	SetDeceasedField(ctx context.Context, id, field, value string) (session.Snapshot, error)
	AddHeir(ctx context.Context, id string) (session.Snapshot, error)
	UpdateHeir(ctx context.Context, id string, index int, field, value string) (session.Snapshot, error)
	RemoveHeir(ctx context.Context, id string, index int) (session.Snapshot, error)
	AddProperty(ctx context.Context, id string) (session.Snapshot, error)
	UpdateProperty(ctx context.Context, id string, index int, field, value string) (session.Snapshot, error)
	RemoveProperty(ctx context.Context, id string, index int) (session.Snapshot, error)
	SetAssignment(ctx context.Context, id, propertyID, heirID string) (session.Snapshot, error)
	Advance(ctx context.Context, id string) (document.Document, error)
	Back(ctx context.Context, id string) (session.Snapshot, error)
	Document(ctx context.Context, id string) (document.Document, error)
}

// Handler handles the wizard endpoints.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// New creates a session Handler.
func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Register mounts the wizard routes. The extract route takes multipart bodies
// and stays outside the JSON content-type check.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Post("/sessions/{id}/extract", h.handleExtract)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/sessions/{id}", h.handleGet)
		r.Delete("/sessions/{id}", h.handleDelete)
		r.Post("/sessions/{id}/manual", h.handleStartManual)
		r.Patch("/sessions/{id}/deceased", h.handleSetDeceasedField)
		r.Post("/sessions/{id}/heirs", h.handleAddHeir)
		r.Patch("/sessions/{id}/heirs/{index}", h.handleUpdateHeir)
		r.Delete("/sessions/{id}/heirs/{index}", h.handleRemoveHeir)
		r.Post("/sessions/{id}/properties", h.handleAddProperty)
		r.Patch("/sessions/{id}/properties/{index}", h.handleUpdateProperty)
		r.Delete("/sessions/{id}/properties/{index}", h.handleRemoveProperty)
		r.Put("/sessions/{id}/assignments/{propertyID}", h.handleSetAssignment)
		r.Post("/sessions/{id}/advance", h.handleAdvance)
		r.Post("/sessions/{id}/back", h.handleBack)
		r.Get("/sessions/{id}/document", h.handleDocument)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Create(r.Context())
	httputil.WriteJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExtract accepts the sheet as a multipart "file" part, validates the
// media type, and hands the bytes to the service.
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.WarnContext(ctx, "invalid upload",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart file field required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read upload"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !extract.SupportedContentType(contentType) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unsupported media type %q", contentType))
		return
	}

	snap, err := h.service.Extract(ctx, chi.URLParam(r, "id"), extract.File{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "extraction request failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleStartManual(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.StartManual(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleSetDeceasedField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[fieldUpdateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	snap, err := h.service.SetDeceasedField(ctx, chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleAddHeir(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.AddHeir(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleUpdateHeir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := h.pathIndex(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[fieldUpdateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	snap, err := h.service.UpdateHeir(ctx, chi.URLParam(r, "id"), index, req.Field, req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleRemoveHeir(w http.ResponseWriter, r *http.Request) {
	index, ok := h.pathIndex(w, r)
	if !ok {
		return
	}
	snap, err := h.service.RemoveHeir(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleAddProperty(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.AddProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, ok := h.pathIndex(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[fieldUpdateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	snap, err := h.service.UpdateProperty(ctx, chi.URLParam(r, "id"), index, req.Field, req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleRemoveProperty(w http.ResponseWriter, r *http.Request) {
	index, ok := h.pathIndex(w, r)
	if !ok {
		return
	}
	snap, err := h.service.RemoveProperty(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleSetAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[setAssignmentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	snap, err := h.service.SetAssignment(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "propertyID"), req.HeirID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Back(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// pathIndex parses the {index} URL parameter; on failure it writes a
// bad_request response and returns ok=false.
func (h *Handler) pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid index %q", raw))
		return 0, false
	}
	return index, true
}
