package models

import (
	"slices"
	"time"

	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
)

// SessionStatus tracks whether an issuance is still editable.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// Session is one policy-issuance attempt for one quote.
//
// Invariants:
//   - At most one IN_PROGRESS session exists per quote (enforced by the store)
//   - Status moves IN_PROGRESS → COMPLETED only, and PolicyID is set exactly then
//   - CurrentStep is persisted so an interrupted wizard resumes where it left off
//   - Photos hold at most one record per requirement id
//   - A COMPLETED session is read-only
type Session struct {
	ID          domain.SessionID   `json:"id"`
	QuoteID     domain.QuoteID     `json:"quote_id"`
	ProductType domain.ProductType `json:"product_type"`
	CurrentStep Step               `json:"current_step"`
	Status      SessionStatus      `json:"status"`
	Data        FormData           `json:"data"`
	Photos      []PhotoRecord      `json:"photos"`
	PolicyID    *domain.PolicyID   `json:"policy_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewSession starts an issuance at DATA with a form seeded from the quote.
func NewSession(id domain.SessionID, quoteID domain.QuoteID, productType domain.ProductType, seed FormData, now time.Time) (*Session, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session id is required")
	}
	if quoteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "quote id is required")
	}
	return &Session{
		ID:          id,
		QuoteID:     quoteID,
		ProductType: productType,
		CurrentStep: StepData,
		Status:      SessionStatusInProgress,
		Data:        seed.Clone(),
		Photos:      []PhotoRecord{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Session) IsInProgress() bool {
	return s.Status == SessionStatusInProgress
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Data = s.Data.Clone()
	out.Photos = slices.Clone(s.Photos)
	if out.Photos == nil {
		out.Photos = []PhotoRecord{}
	}
	if s.PolicyID != nil {
		pid := *s.PolicyID
		out.PolicyID = &pid
	}
	return &out
}

// Photo returns the record for a slot, if one was uploaded.
func (s *Session) Photo(slotID string) (PhotoRecord, bool) {
	for _, p := range s.Photos {
		if p.ID == slotID {
			return p, true
		}
	}
	return PhotoRecord{}, false
}

// PhotoPresence maps slot ids to whether they hold content.
func (s *Session) PhotoPresence() map[string]bool {
	out := make(map[string]bool, len(s.Photos))
	for _, p := range s.Photos {
		out[p.ID] = p.HasContent()
	}
	return out
}

// CanUpdate rejects edits to a finished issuance.
func (s *Session) CanUpdate() error {
	if !s.IsInProgress() {
		return dErrors.New(dErrors.CodeInvalidState, "issuance is already completed")
	}
	return nil
}

// ApplyUpdate merges a step update. Photos are replaced only when the update carries a list.
func (s *Session) ApplyUpdate(u StepUpdate, now time.Time) {
	if u.Form != nil {
		s.Data = s.Data.Merge(*u.Form)
	}
	if u.Photos != nil {
		s.Photos = slices.Clone(*u.Photos)
		if s.Photos == nil {
			s.Photos = []PhotoRecord{}
		}
	}
	if u.CurrentStep != nil {
		s.CurrentStep = *u.CurrentStep
	}
	s.UpdatedAt = now
}

// ApplyPhoto replaces or appends the record for rec.ID. An existing slot keeps its
// label and description.
func (s *Session) ApplyPhoto(rec PhotoRecord, now time.Time) {
	for i, p := range s.Photos {
		if p.ID == rec.ID {
			rec.Label = p.Label
			rec.Description = p.Description
			s.Photos[i] = rec
			s.UpdatedAt = now
			return
		}
	}
	s.Photos = append(s.Photos, rec)
	s.UpdatedAt = now
}

// CanComplete checks the issuance can be closed with a policy.
func (s *Session) CanComplete() error {
	if !s.IsInProgress() {
		return dErrors.New(dErrors.CodeInvalidState, "issuance is already completed")
	}
	return nil
}

// ApplyCompletion links the issued policy and closes the session.
func (s *Session) ApplyCompletion(policyID domain.PolicyID, now time.Time) {
	s.Status = SessionStatusCompleted
	s.CurrentStep = StepIssued
	s.PolicyID = &policyID
	s.UpdatedAt = now
}

// StepUpdate is a partial session update sent after each completed wizard step.
// Nil fields are left untouched.
type StepUpdate struct {
	Form        *FormPatch     `json:"form,omitempty"`
	Photos      *[]PhotoRecord `json:"photos,omitempty"`
	CurrentStep *Step          `json:"current_step,omitempty"`
}

// Validate rejects steps a client may not set directly.
func (u StepUpdate) Validate() error {
	if u.CurrentStep != nil {
		if u.CurrentStep.Index() < 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "current_step must be a wizard step")
		}
	}
	if u.Photos != nil {
		seen := make(map[string]struct{}, len(*u.Photos))
		for _, p := range *u.Photos {
			if p.ID == "" {
				return dErrors.New(dErrors.CodeInvalidInput, "photo id is required")
			}
			if _, dup := seen[p.ID]; dup {
				return dErrors.New(dErrors.CodeInvalidInput, "duplicate photo id: "+p.ID)
			}
			seen[p.ID] = struct{}{}
		}
	}
	return nil
}
