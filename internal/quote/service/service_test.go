package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policydesk/internal/quote/store"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
)

type stubLookup struct {
	active map[domain.QuoteID]domain.SessionID
	err    error
}

func (l stubLookup) ActiveIssuance(_ context.Context, quoteID domain.QuoteID) (domain.SessionID, bool, error) {
	if l.err != nil {
		return domain.SessionID{}, false, l.err
	}
	id, ok := l.active[quoteID]
	return id, ok, nil
}

func TestGetQuote(t *testing.T) {
	ctx := context.Background()
	sessionID := domain.NewSessionID()
	svc := New(store.NewSeeded(), WithIssuanceLookup(stubLookup{active: map[domain.QuoteID]domain.SessionID{"q-002": sessionID}}))

	t.Run("decorates the open issuance", func(t *testing.T) {
		details, err := svc.GetQuote(ctx, "q-002")
		require.NoError(t, err)
		require.NotNil(t, details.OngoingIssuanceID)
		assert.Equal(t, sessionID, *details.OngoingIssuanceID)
		assert.Equal(t, "Tours Bahía Azul", details.CustomerName)
	})

	t.Run("no open issuance", func(t *testing.T) {
		details, err := svc.GetQuote(ctx, "q-001")
		require.NoError(t, err)
		assert.Nil(t, details.OngoingIssuanceID)
	})

	t.Run("unknown quote is not found", func(t *testing.T) {
		_, err := svc.GetQuote(ctx, "q-999")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("lookup failure still returns the quote", func(t *testing.T) {
		failing := New(store.NewSeeded(), WithIssuanceLookup(stubLookup{err: errors.New("redis down")}))
		details, err := failing.GetQuote(ctx, "q-003")
		require.NoError(t, err)
		assert.Nil(t, details.OngoingIssuanceID)
	})
}

func TestListQuotes(t *testing.T) {
	quotes, err := New(store.NewSeeded()).ListQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 7)
}
