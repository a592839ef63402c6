package models

import (
	"time"

	"policydesk/pkg/domain"
)

// Status is the commercial state of a quote in the upstream catalogue.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusDraft    Status = "DRAFT"
	StatusExpired  Status = "EXPIRED"
)

// Quote is a priced offer awaiting issuance. Quotes are read-only here; the issuance
// flow only references them.
type Quote struct {
	ID             domain.QuoteID     `json:"id"`
	Number         string             `json:"number"`
	ProductType    domain.ProductType `json:"product_type"`
	ProductName    string             `json:"product_name"`
	CreatedAt      time.Time          `json:"created_at"`
	Premium        float64            `json:"premium"`
	Currency       string             `json:"currency"`
	Status         Status             `json:"status"`
	CustomerName   string             `json:"customer_name"`
	RiskObjectName string             `json:"risk_object_name"`
}

// PolicyNumber derives the number of the policy issued from this quote.
func (q *Quote) PolicyNumber() string {
	return q.Number + "-POL"
}

// Details is a quote as shown to the agent, with the open issuance if any.
type Details struct {
	*Quote
	OngoingIssuanceID *domain.SessionID `json:"ongoing_issuance_id,omitempty"`
}
