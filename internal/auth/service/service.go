// Package service implements the mock agent login.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"policydesk/internal/auth/models"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/requestcontext"
)

const (
	defaultTokenTTL    = 8 * time.Hour
	defaultRememberTTL = 30 * 24 * time.Hour
)

// agentNamespace derives stable agent ids from usernames.
var agentNamespace = uuid.MustParse("5f1d1c4e-7a0b-4c8e-9a51-2f3b7d9e0c11")

type TokenIssuer interface {
	GenerateAccessToken(agentID domain.AgentID, agentName string, expiresIn time.Duration) (string, error)
}

type Service struct {
	tokens      TokenIssuer
	tokenTTL    time.Duration
	rememberTTL time.Duration
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTokenTTL sets the lifetime of regular and "remember me" tokens.
func WithTokenTTL(regular, remember time.Duration) Option {
	return func(s *Service) {
		if regular > 0 {
			s.tokenTTL = regular
		}
		if remember > 0 {
			s.rememberTTL = remember
		}
	}
}

func New(tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		tokens:      tokens,
		tokenTTL:    defaultTokenTTL,
		rememberTTL: defaultRememberTTL,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login accepts any non-empty credentials. There is no user directory behind
// the desk; the same username always maps to the same agent id.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	if req.Username == "" || req.Password == "" {
		s.logger.WarnContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"reason", "empty credentials",
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Credenciales inválidas")
	}

	agent := models.Agent{
		ID:       domain.AgentID(uuid.NewSHA1(agentNamespace, []byte(req.Username))),
		Username: req.Username,
		Name:     req.Username,
	}

	ttl := s.tokenTTL
	if req.Remember {
		ttl = s.rememberTTL
	}
	token, err := s.tokens.GenerateAccessToken(agent.ID, agent.Name, ttl)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	s.logger.InfoContext(ctx, "agent logged in",
		"request_id", requestcontext.RequestID(ctx),
		"agent_id", agent.ID,
		"remember", req.Remember,
	)
	return &models.LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		ExpiresAt:   requestcontext.Now(ctx).Add(ttl),
		Agent:       agent,
	}, nil
}
