package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"policydesk/internal/policy/models"
	"policydesk/internal/policy/service"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/httputil"
	"policydesk/pkg/requestcontext"
)

// Service is the read side of the policy issuer.
type Service interface {
	Get(ctx context.Context, id domain.PolicyID) (*models.Policy, error)
	Document(ctx context.Context, id domain.PolicyID) (*service.Document, error)
}

type Handler struct {
	policies Service
	logger   *slog.Logger
}

func New(policies Service, logger *slog.Logger) *Handler {
	return &Handler{policies: policies, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/policies/{policyID}", h.handleGetPolicy)
	r.Get("/policies/{policyID}/document", h.handleGetDocument)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	p, err := h.policies.Get(ctx, id)
	if err != nil {
		h.writeFailure(ctx, w, "failed to get policy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	doc, err := h.policies.Document(ctx, id)
	if err != nil {
		h.writeFailure(ctx, w, "failed to get policy document", err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+doc.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (h *Handler) policyID(w http.ResponseWriter, r *http.Request) (domain.PolicyID, bool) {
	id, err := domain.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.PolicyID{}, false
	}
	return id, true
}

func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
