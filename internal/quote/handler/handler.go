package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policydesk/internal/quote/models"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/httputil"
	"policydesk/pkg/requestcontext"
)

type Service interface {
	ListQuotes(ctx context.Context) ([]*models.Quote, error)
	GetQuote(ctx context.Context, id domain.QuoteID) (*models.Details, error)
}

type Handler struct {
	quotes Service
	logger *slog.Logger
}

func New(quotes Service, logger *slog.Logger) *Handler {
	return &Handler{quotes: quotes, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/quotes", h.handleList)
	r.Get("/quotes/{quoteID}", h.handleGet)
}

type listResponse struct {
	Quotes []*models.Quote `json:"quotes"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	quotes, err := h.quotes.ListQuotes(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list quotes",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if quotes == nil {
		quotes = []*models.Quote{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Quotes: quotes})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseQuoteID(chi.URLParam(r, "quoteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := h.quotes.GetQuote(ctx, id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to get quote",
				"request_id", requestcontext.RequestID(ctx),
				"quote_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}
