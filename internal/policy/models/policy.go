package models

import (
	"time"

	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
)

// Policy is the contract issued from a completed issuance.
//
// Invariants:
//   - PolicyNumber is the quote number with a "-POL" suffix
//   - ExpiryDate is exactly one calendar year after EffectiveDate
//   - At most one policy exists per issuance session
type Policy struct {
	ID                domain.PolicyID  `json:"id"`
	QuoteID           domain.QuoteID   `json:"quote_id"`
	SessionID         domain.SessionID `json:"session_id"`
	PolicyNumber      string           `json:"policy_number"`
	ProductName       string           `json:"product_name"`
	InsuredName       string           `json:"insured_name"`
	EffectiveDate     time.Time        `json:"effective_date"`
	ExpiryDate        time.Time        `json:"expiry_date"`
	DocumentRef       string           `json:"document_ref,omitempty"`
	EmailSent         bool             `json:"email_sent"`
	NotificationEmail string           `json:"notification_email,omitempty"`
}

// NewPolicy derives a policy from its inputs. The term is one year from effective.
func NewPolicy(id domain.PolicyID, sessionID domain.SessionID, quoteID domain.QuoteID, quoteNumber, productName, insuredName, email string, effective time.Time) (*Policy, error) {
	if id.IsNil() || sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "policy and session ids are required")
	}
	if quoteNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "quote number is required")
	}
	return &Policy{
		ID:                id,
		QuoteID:           quoteID,
		SessionID:         sessionID,
		PolicyNumber:      quoteNumber + "-POL",
		ProductName:       productName,
		InsuredName:       insuredName,
		EffectiveDate:     effective,
		ExpiryDate:        effective.AddDate(1, 0, 0),
		EmailSent:         email != "",
		NotificationEmail: email,
	}, nil
}
