// Package service issues policies and serves their documents.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"policydesk/internal/policy/models"
	"policydesk/internal/storage"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
	"policydesk/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Policy) error
	FindByID(ctx context.Context, id domain.PolicyID) (*models.Policy, error)
	FindBySession(ctx context.Context, sessionID domain.SessionID) (*models.Policy, error)
}

// Renderer turns a policy into a downloadable document.
type Renderer interface {
	Render(p *models.Policy) ([]byte, error)
	ContentType() string
}

// IssueRequest carries what the issuer needs from the session and its quote.
type IssueRequest struct {
	SessionID         domain.SessionID
	QuoteID           domain.QuoteID
	QuoteNumber       string
	ProductName       string
	InsuredName       string
	NotificationEmail string
}

// Document is a rendered policy ready to be served.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Service struct {
	store    Store
	blobs    storage.BlobStore
	renderer Renderer
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, blobs storage.BlobStore, renderer Renderer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		blobs:    blobs,
		renderer: renderer,
		logger:   slog.Default(),
		tracer:   otel.Tracer("policydesk/policy"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates the policy for a session. Issuing twice for the same session
// returns the first policy.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "policy.Issue", trace.WithAttributes(
		attribute.String("session.id", req.SessionID.String()),
		attribute.String("quote.id", req.QuoteID.String()),
	))
	defer span.End()

	existing, err := s.store.FindBySession(ctx, req.SessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeIssuanceFailed, "No se pudo emitir la póliza")
	}

	p, err := models.NewPolicy(domain.NewPolicyID(), req.SessionID, req.QuoteID, req.QuoteNumber,
		req.ProductName, req.InsuredName, req.NotificationEmail, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	doc, err := s.renderer.Render(p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIssuanceFailed, "No se pudo generar el documento de la póliza")
	}
	ref, err := s.blobs.Put(ctx, s.renderer.ContentType(), doc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIssuanceFailed, "No se pudo guardar el documento de la póliza")
	}
	p.DocumentRef = ref

	if err := s.store.Create(ctx, p); err != nil {
		_ = s.blobs.Delete(ctx, ref)
		if errors.Is(err, sentinel.ErrConflict) {
			// lost a race with a concurrent issue for the same session
			if winner, findErr := s.store.FindBySession(ctx, req.SessionID); findErr == nil {
				return winner, nil
			}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeIssuanceFailed, "No se pudo emitir la póliza")
	}

	s.logger.InfoContext(ctx, "policy issued",
		"policy_id", p.ID,
		"policy_number", p.PolicyNumber,
		"session_id", p.SessionID,
		"email_sent", p.EmailSent,
	)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id domain.PolicyID) (*models.Policy, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Póliza no encontrada")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	return p, nil
}

// Document returns the rendered PDF for a policy.
func (s *Service) Document(ctx context.Context, id domain.PolicyID) (*Document, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	blob, err := s.blobs.Get(ctx, p.DocumentRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Documento de póliza no encontrado")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy document")
	}
	return &Document{
		FileName:    "poliza-" + p.PolicyNumber + ".pdf",
		ContentType: blob.ContentType,
		Data:        blob.Data,
	}, nil
}
