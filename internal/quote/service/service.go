// Package service exposes the quote catalogue to the agent.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"policydesk/internal/quote/models"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
)

type Store interface {
	FindByID(ctx context.Context, id domain.QuoteID) (*models.Quote, error)
	List(ctx context.Context) ([]*models.Quote, error)
}

// IssuanceLookup reports the open issuance of a quote, if any.
type IssuanceLookup interface {
	ActiveIssuance(ctx context.Context, quoteID domain.QuoteID) (domain.SessionID, bool, error)
}

type Service struct {
	store     Store
	issuances IssuanceLookup
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIssuanceLookup enables ongoing-issuance decoration on GetQuote.
func WithIssuanceLookup(l IssuanceLookup) Option {
	return func(s *Service) {
		s.issuances = l
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("policydesk/quote"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListQuotes(ctx context.Context) ([]*models.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "quote.List")
	defer span.End()

	quotes, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list quotes")
	}
	return quotes, nil
}

// GetQuote returns a quote with its open issuance id when one exists.
func (s *Service) GetQuote(ctx context.Context, id domain.QuoteID) (*models.Details, error) {
	ctx, span := s.tracer.Start(ctx, "quote.Get", trace.WithAttributes(attribute.String("quote.id", id.String())))
	defer span.End()

	q, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Cotización no encontrada")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quote")
	}

	details := &models.Details{Quote: q}
	if s.issuances == nil {
		return details, nil
	}
	sessionID, ok, err := s.issuances.ActiveIssuance(ctx, id)
	if err != nil {
		// the quote is still useful without the badge
		s.logger.WarnContext(ctx, "failed to look up ongoing issuance",
			"quote_id", id,
			"error", err,
		)
		return details, nil
	}
	if ok {
		details.OngoingIssuanceID = &sessionID
	}
	return details, nil
}
