// Package service is the session store contract the wizard drives: start or resume
// an issuance, persist step updates, upload photos and close the issuance with a policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"policydesk/internal/issuance/metrics"
	"policydesk/internal/issuance/models"
	"policydesk/internal/photo"
	policyModels "policydesk/internal/policy/models"
	policyService "policydesk/internal/policy/service"
	quoteModels "policydesk/internal/quote/models"
	"policydesk/internal/storage"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
	"policydesk/pkg/requestcontext"
)

// Store persists sessions. Implementations return sentinel errors.
type Store interface {
	CreateIfNoneInProgress(ctx context.Context, sess *models.Session) (*models.Session, bool, error)
	FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error)
	FindInProgressByQuote(ctx context.Context, quoteID domain.QuoteID) (*models.Session, error)
	Execute(ctx context.Context, id domain.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
}

// QuoteSource resolves the quote an issuance belongs to.
type QuoteSource interface {
	FindByID(ctx context.Context, id domain.QuoteID) (*quoteModels.Quote, error)
}

// Issuer creates and looks up policies.
type Issuer interface {
	Issue(ctx context.Context, req policyService.IssueRequest) (*policyModels.Policy, error)
	Get(ctx context.Context, id domain.PolicyID) (*policyModels.Policy, error)
}

type Service struct {
	store   Store
	quotes  QuoteSource
	blobs   storage.BlobStore
	issuer  Issuer
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, quotes QuoteSource, blobs storage.BlobStore, issuer Issuer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		quotes: quotes,
		blobs:  blobs,
		issuer: issuer,
		logger: slog.Default(),
		tracer: otel.Tracer("policydesk/issuance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartIssuance returns the quote's IN_PROGRESS session, creating one seeded from
// the quote when none exists.
func (s *Service) StartIssuance(ctx context.Context, quoteID domain.QuoteID) (*models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.Start", trace.WithAttributes(attribute.String("quote.id", quoteID.String())))
	defer span.End()

	existing, err := s.store.FindInProgressByQuote(ctx, quoteID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.translate(err, "")
	}

	q, err := s.quote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	seed := models.SeedForm(q.ProductType, q.CustomerName, q.RiskObjectName)
	sess, err := models.NewSession(domain.NewSessionID(), q.ID, q.ProductType, seed, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	stored, created, err := s.store.CreateIfNoneInProgress(ctx, sess)
	if err != nil {
		return nil, s.translate(err, "")
	}
	if created {
		s.metrics.IncrementSessionsStarted()
		s.logger.InfoContext(ctx, "issuance started",
			"session_id", stored.ID,
			"quote_id", stored.QuoteID,
			"product_type", stored.ProductType,
			"agent_id", requestcontext.AgentID(ctx),
		)
	}
	span.SetAttributes(attribute.String("session.id", stored.ID.String()), attribute.Bool("session.created", created))
	return stored, nil
}

func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	sess, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "Emisión no encontrada")
	}
	return sess, nil
}

// ActiveIssuance reports the IN_PROGRESS session of a quote.
func (s *Service) ActiveIssuance(ctx context.Context, quoteID domain.QuoteID) (domain.SessionID, bool, error) {
	sess, err := s.store.FindInProgressByQuote(ctx, quoteID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domain.SessionID{}, false, nil
	}
	if err != nil {
		return domain.SessionID{}, false, s.translate(err, "")
	}
	return sess.ID, true, nil
}

// UpdateStep merges a partial update into the session. Completed sessions are read-only.
func (s *Service) UpdateStep(ctx context.Context, id domain.SessionID, update models.StepUpdate) (*models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.UpdateStep", trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	if err := update.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	var left models.Step
	sess, err := s.store.Execute(ctx, id,
		func(sess *models.Session) error { return sess.CanUpdate() },
		func(sess *models.Session) {
			left = sess.CurrentStep
			sess.ApplyUpdate(update, now)
		},
	)
	if err != nil {
		return nil, s.translate(err, "Emisión no encontrada")
	}
	if update.CurrentStep != nil && update.CurrentStep.Index() > left.Index() {
		s.metrics.IncrementStepAdvance(left.String())
	}
	return sess, nil
}

// UploadPhoto stores the prepared content and points the slot's record at it.
// Re-uploading a slot replaces its content reference.
func (s *Service) UploadPhoto(ctx context.Context, id domain.SessionID, p photo.Prepared) (*models.PhotoRecord, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.UploadPhoto", trace.WithAttributes(
		attribute.String("session.id", id.String()),
		attribute.String("photo.slot", p.SlotID),
		attribute.Int("photo.bytes", p.Content.Size()),
	))
	defer span.End()

	if p.Content.Size() == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "photo content is empty")
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "Emisión no encontrada")
	}
	req, ok := models.FindRequirement(current.ProductType, p.SlotID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown photo slot: "+p.SlotID)
	}

	ref, err := s.blobs.Put(ctx, p.Content.ContentType, p.Content.Data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "No se pudo subir la foto")
	}

	now := requestcontext.Now(ctx)
	rec := models.PhotoRecord{
		ID:           req.ID,
		Label:        req.Label,
		Description:  req.Description,
		FileName:     p.Content.FileName,
		ContentRef:   ref,
		ContentType:  p.Content.ContentType,
		SizeBytes:    int64(p.Content.Size()),
		Width:        p.Content.Width,
		Height:       p.Content.Height,
		CapturedWith: string(p.Content.Source),
		Device:       deviceLabel(requestcontext.UserAgent(ctx)),
		UploadedAt:   now,
	}
	var previousRef string
	sess, err := s.store.Execute(ctx, id,
		func(sess *models.Session) error { return sess.CanUpdate() },
		func(sess *models.Session) {
			if old, ok := sess.Photo(rec.ID); ok {
				previousRef = old.ContentRef
			}
			sess.ApplyPhoto(rec, now)
		},
	)
	if err != nil {
		_ = s.blobs.Delete(ctx, ref)
		return nil, s.translate(err, "Emisión no encontrada")
	}
	if previousRef != "" && previousRef != ref {
		if err := s.blobs.Delete(ctx, previousRef); err != nil {
			s.logger.WarnContext(ctx, "failed to release replaced photo",
				"session_id", id,
				"content_ref", previousRef,
				"error", err,
			)
		}
	}

	s.metrics.ObservePhotoUpload(p.Content.Size(), p.Report.Saved())
	stored, _ := sess.Photo(rec.ID)
	return &stored, nil
}

// GetPhotoContent returns the stored bytes of one slot.
func (s *Service) GetPhotoContent(ctx context.Context, id domain.SessionID, slotID string) (*storage.Blob, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, ok := sess.Photo(slotID)
	if !ok || !rec.HasContent() {
		return nil, dErrors.New(dErrors.CodeNotFound, "Foto no encontrada")
	}
	blob, err := s.blobs.Get(ctx, rec.ContentRef)
	if err != nil {
		return nil, s.translate(err, "Foto no encontrada")
	}
	return blob, nil
}

// IssuePolicy issues the policy for a session and closes it. Calling it again on a
// completed session returns the policy already issued.
func (s *Service) IssuePolicy(ctx context.Context, id domain.SessionID) (*policyModels.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.IssuePolicy", trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsInProgress() && sess.PolicyID != nil {
		return s.issuer.Get(ctx, *sess.PolicyID)
	}

	q, err := s.quote(ctx, sess.QuoteID)
	if err != nil {
		return nil, err
	}

	insured := strings.TrimSpace(sess.Data.Common.InsuredName)
	if insured == "" {
		insured = q.CustomerName
	}
	p, err := s.issuer.Issue(ctx, policyService.IssueRequest{
		SessionID:         sess.ID,
		QuoteID:           q.ID,
		QuoteNumber:       q.Number,
		ProductName:       q.ProductName,
		InsuredName:       insured,
		NotificationEmail: strings.TrimSpace(sess.Data.Common.InsuredEmail),
	})
	if err != nil {
		s.metrics.IncrementIssuanceFailures()
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue failed")
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			err = dErrors.Wrap(err, dErrors.CodeIssuanceFailed, "No se pudo emitir la póliza")
		}
		return nil, err
	}

	now := requestcontext.Now(ctx)
	closed, err := s.store.Execute(ctx, id,
		func(sess *models.Session) error {
			if !sess.IsInProgress() && sess.PolicyID != nil && *sess.PolicyID == p.ID {
				return errAlreadyLinked
			}
			return sess.CanComplete()
		},
		func(sess *models.Session) { sess.ApplyCompletion(p.ID, now) },
	)
	if errors.Is(err, errAlreadyLinked) {
		return p, nil
	}
	if err != nil {
		s.metrics.IncrementIssuanceFailures()
		return nil, s.translate(err, "Emisión no encontrada")
	}

	s.metrics.IncrementPoliciesIssued()
	s.metrics.ObserveIssuanceDuration(now.Sub(closed.CreatedAt))
	s.logger.InfoContext(ctx, "issuance completed",
		"session_id", closed.ID,
		"quote_id", closed.QuoteID,
		"policy_id", p.ID,
		"duration", now.Sub(closed.CreatedAt).Round(time.Second),
	)
	return p, nil
}

var errAlreadyLinked = errors.New("session already linked to this policy")

func (s *Service) quote(ctx context.Context, id domain.QuoteID) (*quoteModels.Quote, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "Cotización no encontrada")
	}
	return q, nil
}

// translate maps store sentinels to coded errors. Coded errors pass through.
func (s *Service) translate(err error, notFound string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound) && notFound != "":
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "La emisión fue modificada al mismo tiempo, intenta de nuevo")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Servicio no disponible")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "issuance store failure")
	}
}

// deviceLabel renders a user agent as "Browser version (OS)".
func deviceLabel(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	label := strings.TrimSpace(fmt.Sprintf("%s %s", name, version))
	if platform := ua.OS(); platform != "" {
		label = fmt.Sprintf("%s (%s)", label, platform)
	}
	if ua.Mobile() {
		label += " móvil"
	}
	return label
}
