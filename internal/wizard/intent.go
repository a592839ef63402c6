package wizard

import "policydesk/pkg/domain"

// IntentKind names the screen the caller should move to.
type IntentKind string

const (
	IntentNone         IntentKind = "none"
	IntentEnterWizard  IntentKind = "enter_wizard"
	IntentLeaveToQuote IntentKind = "leave_to_quote"
	IntentShowPolicy   IntentKind = "show_policy"
)

// Intent is a navigation request produced by a wizard operation.
type Intent struct {
	Kind      IntentKind        `json:"kind"`
	QuoteID   domain.QuoteID    `json:"quote_id,omitempty"`
	SessionID *domain.SessionID `json:"session_id,omitempty"`
	PolicyID  *domain.PolicyID  `json:"policy_id,omitempty"`
}

func None() Intent { return Intent{Kind: IntentNone} }

func EnterWizard(quoteID domain.QuoteID, sessionID domain.SessionID) Intent {
	return Intent{Kind: IntentEnterWizard, QuoteID: quoteID, SessionID: &sessionID}
}

func LeaveToQuote(quoteID domain.QuoteID) Intent {
	return Intent{Kind: IntentLeaveToQuote, QuoteID: quoteID}
}

func ShowPolicy(policyID domain.PolicyID) Intent {
	return Intent{Kind: IntentShowPolicy, PolicyID: &policyID}
}
