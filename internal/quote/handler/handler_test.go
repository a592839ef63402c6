package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"policydesk/internal/quote/handler/mocks"
	"policydesk/internal/quote/models"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/quote-mocks.go -package=mocks Service
type QuoteHandlerSuite struct {
	suite.Suite
	svc    *mocks.MockService
	router chi.Router
}

func TestQuoteHandlerSuite(t *testing.T) {
	suite.Run(t, new(QuoteHandlerSuite))
}

func (s *QuoteHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.svc = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *QuoteHandlerSuite) TestList() {
	s.Run("returns the catalogue", func() {
		s.svc.EXPECT().ListQuotes(gomock.Any()).Return([]*models.Quote{
			{ID: "q-001", Number: "123-BOAT-001", ProductType: domain.ProductBoats},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/quotes"))

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[listResponse](s.T(), rr)
		s.Require().Len(body.Quotes, 1)
		s.Equal(domain.QuoteID("q-001"), body.Quotes[0].ID)
	})

	s.Run("empty catalogue is an empty array", func() {
		s.svc.EXPECT().ListQuotes(gomock.Any()).Return(nil, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/quotes"))

		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"quotes":[]}`, rr.Body.String())
	})

	s.Run("store failure", func() {
		s.svc.EXPECT().ListQuotes(gomock.Any()).Return(nil, dErrors.Wrap(errors.New("down"), dErrors.CodeInternal, "failed to list quotes"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/quotes"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
	})
}

func (s *QuoteHandlerSuite) TestGet() {
	s.Run("includes the ongoing issuance", func() {
		sessionID := domain.NewSessionID()
		s.svc.EXPECT().GetQuote(gomock.Any(), domain.QuoteID("q-001")).Return(&models.Details{
			Quote:             &models.Quote{ID: "q-001", Number: "123-BOAT-001"},
			OngoingIssuanceID: &sessionID,
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/quotes/q-001"))

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal("123-BOAT-001", (*body)["number"])
		s.Equal(sessionID.String(), (*body)["ongoing_issuance_id"])
	})

	s.Run("unknown quote", func() {
		s.svc.EXPECT().GetQuote(gomock.Any(), domain.QuoteID("q-999")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "Cotización no encontrada"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/quotes/q-999"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/quotes/%20bad!"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}
