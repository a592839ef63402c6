// Package handler exposes the issuance wizard over HTTP. Each session is driven
// through a live wizard controller held by the registry.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"policydesk/internal/issuance/models"
	"policydesk/internal/photo"
	"policydesk/internal/storage"
	"policydesk/internal/wizard"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/httputil"
	"policydesk/pkg/requestcontext"
)

const (
	// multipart overhead on top of the photo itself
	uploadSlack     = 1 << 20
	multipartMemory = 4 << 20
)

// Wizards opens and tracks wizard controllers.
type Wizards interface {
	Start(ctx context.Context, quoteID domain.QuoteID) (*wizard.Controller, wizard.Intent, error)
	Controller(ctx context.Context, id domain.SessionID) (*wizard.Controller, error)
	Evict(id domain.SessionID)
}

// PhotoContent serves uploaded photos.
type PhotoContent interface {
	GetPhotoContent(ctx context.Context, id domain.SessionID, slotID string) (*storage.Blob, error)
}

// PreviewStore serves thumbnails of captured, not yet uploaded photos.
type PreviewStore interface {
	Get(handle string) ([]byte, bool)
}

type Handler struct {
	wizards     Wizards
	photos      PhotoContent
	previews    PreviewStore
	jpegQuality int
	maxUpload   int64
	logger      *slog.Logger
}

type Option func(*Handler)

// WithJPEGQuality sets the encoding quality of camera frames.
func WithJPEGQuality(q int) Option {
	return func(h *Handler) {
		h.jpegQuality = q
	}
}

// WithMaxPhotoBytes bounds the photo part of an upload.
func WithMaxPhotoBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

func New(wizards Wizards, photos PhotoContent, previews PreviewStore, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		wizards:   wizards,
		photos:    photos,
		previews:  previews,
		maxUpload: photo.MaxPickBytes,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/quotes/{quoteID}/issuance", h.handleStart)
	r.Route("/issuances/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/form", h.handlePatchForm)
		r.Put("/photos/{slotID}", h.handleCapturePhoto)
		r.Delete("/photos/{slotID}", h.handleRemovePhoto)
		r.Get("/photos/{slotID}", h.handleGetPhoto)
		r.Get("/previews/{handle}", h.handleGetPreview)
		r.Post("/advance", h.handleAdvance)
		r.Post("/retreat", h.handleRetreat)
		r.Post("/confirm", h.handleConfirm)
		r.Get("/review", h.handleReview)
	})
}

type wizardResponse struct {
	Wizard wizard.Snapshot `json:"wizard"`
	Intent *wizard.Intent  `json:"intent,omitempty"`
}

func respond(w http.ResponseWriter, status int, snap wizard.Snapshot, intent wizard.Intent) {
	resp := wizardResponse{Wizard: snap}
	if intent.Kind != wizard.IntentNone && intent.Kind != "" {
		resp.Intent = &intent
	}
	httputil.WriteJSON(w, status, resp)
}

// formPatchRequest is the body of PATCH /form.
type formPatchRequest struct {
	models.FormPatch
}

func (r *formPatchRequest) Validate() error {
	if r.Common == nil && r.Location == nil && r.Boat == nil && r.Property == nil {
		return dErrors.New(dErrors.CodeBadRequest, "form patch is empty")
	}
	return nil
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quoteID, err := domain.ParseQuoteID(chi.URLParam(r, "quoteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, intent, err := h.wizards.Start(ctx, quoteID)
	if err != nil {
		h.writeFailure(ctx, w, "failed to start issuance", err)
		return
	}
	h.logger.InfoContext(ctx, "issuance wizard opened",
		"request_id", requestcontext.RequestID(ctx),
		"agent_id", requestcontext.AgentID(ctx),
		"quote_id", quoteID,
		"session_id", c.SessionID(),
	)
	respond(w, http.StatusOK, c.Snapshot(), intent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, c.Snapshot(), wizard.None())
}

func (h *Handler) handlePatchForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[formPatchRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	snap, err := c.Apply(req.FormPatch)
	if err != nil {
		h.writeFailure(ctx, w, "failed to apply form patch", err)
		return
	}
	respond(w, http.StatusOK, snap, wizard.None())
}

func (h *Handler) handleCapturePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	slotID := chi.URLParam(r, "slotID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+uploadSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "La imagen excede el tamaño máximo permitido."))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "expected multipart/form-data"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	kind, err := photo.ParseSourceKind(r.FormValue("source"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid file part"))
		return
	}
	if file != nil {
		defer file.Close()
	}

	src, err := h.source(kind, file, header)
	if err != nil {
		h.writeFailure(ctx, w, "failed to read uploaded photo", err)
		return
	}
	snap, err := c.Capture(ctx, slotID, src)
	if err != nil {
		h.writeFailure(ctx, w, "failed to capture photo", err)
		return
	}
	respond(w, http.StatusOK, snap, wizard.None())
}

// source builds the acquisition path for one upload. A missing file part reaches
// the wizard as a cancelled pick or an absent camera.
func (h *Handler) source(kind photo.SourceKind, file multipart.File, header *multipart.FileHeader) (photo.Source, error) {
	if kind == photo.SourceCamera {
		var frame []byte
		if file != nil {
			data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid file part")
			}
			if int64(len(data)) > h.maxUpload {
				return nil, dErrors.New(dErrors.CodeValidation, "La imagen excede el tamaño máximo permitido.")
			}
			frame = data
		}
		return photo.NewCameraSource(photo.NewFrameCamera(frame), h.jpegQuality), nil
	}
	if file == nil {
		return photo.NewFileSource(photo.ReaderPicker{}), nil
	}
	return photo.NewFileSource(photo.ReaderPicker{Name: header.Filename, Body: file}), nil
}

func (h *Handler) handleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	snap, err := c.RemovePhoto(chi.URLParam(r, "slotID"))
	if err != nil {
		h.writeFailure(ctx, w, "failed to remove photo", err)
		return
	}
	respond(w, http.StatusOK, snap, wizard.None())
}

func (h *Handler) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	blob, err := h.photos.GetPhotoContent(ctx, id, chi.URLParam(r, "slotID"))
	if err != nil {
		h.writeFailure(ctx, w, "failed to get photo", err)
		return
	}
	writeBytes(w, blob.ContentType, blob.Data)
}

func (h *Handler) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	handle := chi.URLParam(r, "handle")
	if !c.HasPreview(handle) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Vista previa no disponible"))
		return
	}
	thumb, ok := h.previews.Get(handle)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Vista previa no disponible"))
		return
	}
	writeBytes(w, "image/jpeg", thumb)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	snap, err := c.Advance(ctx)
	if err != nil {
		h.writeFailure(ctx, w, "failed to advance wizard", err)
		return
	}
	respond(w, http.StatusOK, snap, wizard.None())
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	snap, intent, err := c.Retreat()
	if err != nil {
		h.writeFailure(ctx, w, "failed to go back", err)
		return
	}
	if intent.Kind == wizard.IntentLeaveToQuote {
		// the session stays resumable from the store
		h.wizards.Evict(c.SessionID())
	}
	respond(w, http.StatusOK, snap, intent)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	snap, intent, err := c.ConfirmIssue(ctx)
	if err != nil {
		h.writeFailure(ctx, w, "failed to issue policy", err)
		return
	}
	if intent.Kind == wizard.IntentShowPolicy {
		h.wizards.Evict(c.SessionID())
		h.logger.InfoContext(ctx, "policy issued from wizard",
			"request_id", requestcontext.RequestID(ctx),
			"agent_id", requestcontext.AgentID(ctx),
			"session_id", c.SessionID(),
			"policy_id", *intent.PolicyID,
		)
	}
	respond(w, http.StatusOK, snap, intent)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c.Review())
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.SessionID{}, false
	}
	return id, true
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*wizard.Controller, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	c, err := h.wizards.Controller(r.Context(), id)
	if err != nil {
		h.writeFailure(r.Context(), w, "failed to open wizard", err)
		return nil, false
	}
	return c, true
}

func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
