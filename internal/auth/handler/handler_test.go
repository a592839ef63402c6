package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"policydesk/internal/auth/handler/mocks"
	"policydesk/internal/auth/models"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks Service
type AuthHandlerSuite struct {
	suite.Suite
	svc    *mocks.MockService
	router chi.Router
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.svc = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("trims the username and returns the token", func() {
		s.svc.EXPECT().Login(gomock.Any(), models.LoginRequest{Username: "laura", Password: "x"}).
			Return(&models.LoginResult{AccessToken: "tok", TokenType: "Bearer"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
			map[string]any{"username": "  laura ", "password": "x"})
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[models.LoginResult](s.T(), rr)
		s.Equal("tok", body.AccessToken)
	})

	s.Run("rejected credentials", func() {
		s.svc.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Credenciales inválidas"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
			map[string]any{"username": "", "password": ""})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("unknown fields are a bad request", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
			map[string]any{"user": "laura"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *AuthHandlerSuite) TestThrottle() {
	router := chi.NewRouter()
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil)), WithThrottle(blocked)).Register(router)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]any{"username": "a", "password": "b"})
	rr := testutil.DoRequest(router, req)

	s.Equal(http.StatusTooManyRequests, rr.Code)
}
