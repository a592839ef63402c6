package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policydesk/internal/auth/models"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/requestcontext"
)

type fakeTokens struct {
	agentID domain.AgentID
	name    string
	ttl     time.Duration
	err     error
}

func (f *fakeTokens) GenerateAccessToken(agentID domain.AgentID, name string, ttl time.Duration) (string, error) {
	f.agentID, f.name, f.ttl = agentID, name, ttl
	if f.err != nil {
		return "", f.err
	}
	return "signed-token", nil
}

func TestLogin(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	t.Run("empty credentials are rejected", func(t *testing.T) {
		svc := New(&fakeTokens{})
		for _, req := range []models.LoginRequest{
			{Username: "", Password: "secret"},
			{Username: "laura", Password: ""},
		} {
			_, err := svc.Login(ctx, req)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			assert.Equal(t, "Credenciales inválidas", dErrors.MessageOf(err))
		}
	})

	t.Run("any non-empty credentials log in", func(t *testing.T) {
		tokens := &fakeTokens{}
		svc := New(tokens)

		res, err := svc.Login(ctx, models.LoginRequest{Username: "laura", Password: "x"})
		require.NoError(t, err)
		assert.Equal(t, "signed-token", res.AccessToken)
		assert.Equal(t, "Bearer", res.TokenType)
		assert.Equal(t, int64(defaultTokenTTL.Seconds()), res.ExpiresIn)
		assert.Equal(t, now.Add(defaultTokenTTL), res.ExpiresAt)
		assert.Equal(t, "laura", res.Agent.Name)
		assert.Equal(t, res.Agent.ID, tokens.agentID)
	})

	t.Run("agent id is stable per username", func(t *testing.T) {
		svc := New(&fakeTokens{})
		a, err := svc.Login(ctx, models.LoginRequest{Username: "laura", Password: "x"})
		require.NoError(t, err)
		b, err := svc.Login(ctx, models.LoginRequest{Username: "laura", Password: "y"})
		require.NoError(t, err)
		c, err := svc.Login(ctx, models.LoginRequest{Username: "pedro", Password: "y"})
		require.NoError(t, err)

		assert.Equal(t, a.Agent.ID, b.Agent.ID)
		assert.NotEqual(t, a.Agent.ID, c.Agent.ID)
	})

	t.Run("remember extends the token lifetime", func(t *testing.T) {
		tokens := &fakeTokens{}
		svc := New(tokens, WithTokenTTL(time.Hour, 48*time.Hour))

		_, err := svc.Login(ctx, models.LoginRequest{Username: "laura", Password: "x", Remember: true})
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour, tokens.ttl)
	})

	t.Run("signing failure is internal", func(t *testing.T) {
		svc := New(&fakeTokens{err: errors.New("boom")})
		_, err := svc.Login(ctx, models.LoginRequest{Username: "laura", Password: "x"})
		assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
	})
}
