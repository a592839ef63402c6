package wizard

import (
	"policydesk/internal/issuance/models"
	policyModels "policydesk/internal/policy/models"
	"policydesk/pkg/domain"
)

// Snapshot is an immutable view of a controller at one point in time. StepIndex is
// the position in the wizard; ISSUED reports len(WizardSteps).
type Snapshot struct {
	SessionID   domain.SessionID     `json:"session_id"`
	QuoteID     domain.QuoteID       `json:"quote_id"`
	QuoteNumber string               `json:"quote_number"`
	ProductName string               `json:"product_name"`
	ProductType domain.ProductType   `json:"product_type"`
	Step        models.Step          `json:"step"`
	StepIndex   int                  `json:"step_index"`
	Steps       []models.Step        `json:"steps"`
	Form        models.FormData      `json:"form"`
	Photos      []SlotView           `json:"photos"`
	Policy      *policyModels.Policy `json:"policy,omitempty"`
	Busy        bool                 `json:"busy"`
}

// SlotView describes one photo requirement as the agent sees it. Captured is true
// when the slot holds content locally (Pending) or already uploaded.
type SlotView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Captured    bool   `json:"captured"`
	Uploaded    bool   `json:"uploaded"`
	Pending     bool   `json:"pending"`
	FileName    string `json:"file_name,omitempty"`
	Preview     string `json:"preview,omitempty"`
}

// Review is the summary shown before confirmation.
type Review struct {
	InsuredName  string               `json:"insured_name"`
	InsuredRFC   string               `json:"insured_rfc,omitempty"`
	InsuredEmail string               `json:"insured_email"`
	Location     models.LocationData  `json:"location"`
	Boat         *models.BoatData     `json:"boat,omitempty"`
	Property     *models.PropertyData `json:"property,omitempty"`
	Photos       []ReviewPhoto        `json:"photos"`
}

type ReviewPhoto struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	FileName string `json:"file_name,omitempty"`
	Captured bool   `json:"captured"`
}
