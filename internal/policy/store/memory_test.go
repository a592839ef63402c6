package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policydesk/internal/policy/models"
	"policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := models.NewPolicy(domain.NewPolicyID(), domain.NewSessionID(), "q-001", "123-BOAT-001",
		"Botes Recreativos", "Marina", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.Create(ctx, p))

	byID, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.PolicyNumber, byID.PolicyNumber)

	bySession, err := s.FindBySession(ctx, p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySession.ID)

	dup := *p
	dup.ID = domain.NewPolicyID()
	assert.ErrorIs(t, s.Create(ctx, &dup), sentinel.ErrConflict)

	_, err = s.FindByID(ctx, domain.NewPolicyID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.FindBySession(ctx, domain.NewSessionID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
