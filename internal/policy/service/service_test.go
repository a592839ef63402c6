package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"policydesk/internal/policy/models"
	"policydesk/internal/policy/render"
	"policydesk/internal/policy/store"
	"policydesk/internal/storage"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/requestcontext"
)

type failingRenderer struct{}

func (failingRenderer) Render(*models.Policy) ([]byte, error) { return nil, errors.New("font missing") }
func (failingRenderer) ContentType() string                   { return "application/pdf" }

type PolicyServiceSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	blobs *storage.InMemoryBlobStore
	svc   *Service
}

func TestPolicyServiceSuite(t *testing.T) {
	suite.Run(t, new(PolicyServiceSuite))
}

func (s *PolicyServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.blobs = storage.NewInMemoryBlobStore()
	s.svc = New(store.New(), s.blobs, render.NewPDF())
}

func (s *PolicyServiceSuite) request() IssueRequest {
	return IssueRequest{
		SessionID:         domain.NewSessionID(),
		QuoteID:           "q-001",
		QuoteNumber:       "123-BOAT-001",
		ProductName:       "Botes Recreativos",
		InsuredName:       "Marina del Pacífico",
		NotificationEmail: "ops@marina.mx",
	}
}

func (s *PolicyServiceSuite) TestIssue() {
	s.Run("derives number and one-year term", func() {
		p, err := s.svc.Issue(s.ctx, s.request())
		s.Require().NoError(err)
		s.Equal("123-BOAT-001-POL", p.PolicyNumber)
		s.Equal(s.now, p.EffectiveDate)
		s.Equal(time.Date(2027, 3, 14, 10, 30, 0, 0, time.UTC), p.ExpiryDate)
		s.True(p.EmailSent)
		s.NotEmpty(p.DocumentRef)
	})

	s.Run("no email means nothing was sent", func() {
		req := s.request()
		req.NotificationEmail = ""
		p, err := s.svc.Issue(s.ctx, req)
		s.Require().NoError(err)
		s.False(p.EmailSent)
	})

	s.Run("second issue for a session returns the first policy", func() {
		req := s.request()
		first, err := s.svc.Issue(s.ctx, req)
		s.Require().NoError(err)
		count, _ := s.blobs.Size()

		second, err := s.svc.Issue(s.ctx, req)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		after, _ := s.blobs.Size()
		s.Equal(count, after)
	})

	s.Run("render failure is an issuance failure", func() {
		svc := New(store.New(), s.blobs, failingRenderer{})
		_, err := svc.Issue(s.ctx, s.request())
		s.True(dErrors.HasCode(err, dErrors.CodeIssuanceFailed))
	})
}

func (s *PolicyServiceSuite) TestGetAndDocument() {
	p, err := s.svc.Issue(s.ctx, s.request())
	s.Require().NoError(err)

	s.Run("get", func() {
		got, err := s.svc.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.PolicyNumber, got.PolicyNumber)
	})

	s.Run("document", func() {
		doc, err := s.svc.Document(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal("application/pdf", doc.ContentType)
		s.Equal("poliza-123-BOAT-001-POL.pdf", doc.FileName)
		s.NotEmpty(doc.Data)
	})

	s.Run("unknown policy", func() {
		_, err := s.svc.Get(s.ctx, domain.NewPolicyID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = s.svc.Document(s.ctx, domain.NewPolicyID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestIssueIsDeterministicForSameInputs(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	req := IssueRequest{SessionID: domain.NewSessionID(), QuoteID: "q-004", QuoteNumber: "789-AVI-001",
		ProductName: "Aviación General", InsuredName: "Aerolíneas del Norte"}

	a, err := New(store.New(), storage.NewInMemoryBlobStore(), render.NewPDF()).Issue(ctx, req)
	require.NoError(t, err)
	b, err := New(store.New(), storage.NewInMemoryBlobStore(), render.NewPDF()).Issue(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, a.PolicyNumber, b.PolicyNumber)
	assert.Equal(t, a.EffectiveDate, b.EffectiveDate)
	assert.Equal(t, a.ExpiryDate, b.ExpiryDate)
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), a.ExpiryDate)
}
