// Package domain holds the primitives shared by every module: typed identifiers and
// the insurance product catalogue enum. Parsing happens at trust boundaries so the
// rest of the code can rely on well-formed values.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "policydesk/pkg/domain-errors"
)

// SessionID identifies an issuance session.
type SessionID uuid.UUID

// PolicyID identifies an issued policy.
type PolicyID uuid.UUID

// AgentID identifies the insurance agent operating the wizard.
type AgentID uuid.UUID

// QuoteID identifies a quote in the upstream catalogue ("q-001").
// Quotes are not owned by this service, so their ids are opaque strings.
type QuoteID string

var quoteIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

func NewSessionID() SessionID { return SessionID(uuid.New()) }
func NewPolicyID() PolicyID { return PolicyID(uuid.New()) }

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id PolicyID) String() string { return uuid.UUID(id).String() }
func (id PolicyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id AgentID) String() string { return uuid.UUID(id).String() }
func (id AgentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id QuoteID) String() string { return string(id) }
func (id QuoteID) IsNil() bool { return id == "" }

func (id SessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *SessionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id PolicyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *PolicyID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id AgentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *AgentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session_id")
	return SessionID(u), err
}

func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parseUUID(s, "policy_id")
	return PolicyID(u), err
}

func ParseAgentID(s string) (AgentID, error) {
	u, err := parseUUID(s, "agent_id")
	return AgentID(u), err
}

// ParseQuoteID accepts short alphanumeric catalogue ids.
func ParseQuoteID(s string) (QuoteID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "quote_id is required")
	}
	if !quoteIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "quote_id is malformed")
	}
	return QuoteID(s), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is malformed")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is malformed")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
