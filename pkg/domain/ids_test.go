package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "policydesk/pkg/domain-errors"
)

// TestParseSessionID_Invariants validates the parsing invariant:
// "session ids must be valid, non-empty, non-nil UUIDs"
func TestParseSessionID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSessionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseSessionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSessionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseSessionID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, SessionID(validUUID), id)
	})
}

func TestParseQuoteID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"catalogue id", "q-001", false},
		{"underscore", "quote_77", false},
		{"empty", "", true},
		{"path traversal", "../../etc/passwd", true},
		{"whitespace", " q-001", true},
		{"oversized", strings.Repeat("q", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseQuoteID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

// TestIDsMarshalAsText keeps JSON payloads readable: ids travel as plain UUID strings.
func TestIDsMarshalAsText(t *testing.T) {
	type payload struct {
		Session SessionID `json:"session_id"`
		Policy  PolicyID  `json:"policy_id"`
	}
	in := payload{Session: NewSessionID(), Policy: NewPolicyID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.Session.String())

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errSession := ParseSessionID(validUUID)
		_, errPolicy := ParsePolicyID(validUUID)
		_, errAgent := ParseAgentID(validUUID)

		require.NoError(t, errSession)
		require.NoError(t, errPolicy)
		require.NoError(t, errAgent)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errSession := ParseSessionID(input)
			_, errPolicy := ParsePolicyID(input)
			_, errAgent := ParseAgentID(input)

			require.Error(t, errSession)
			require.Error(t, errPolicy)
			require.Error(t, errAgent)
		})
	}
}
