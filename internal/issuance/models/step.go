package models

import (
	"slices"

	dErrors "policydesk/pkg/domain-errors"
)

// Step is a position in the issuance wizard.
type Step string

const (
	StepData     Step = "DATA"
	StepLocation Step = "LOCATION"
	StepPhotos   Step = "PHOTOS"
	StepReview   Step = "REVIEW"
	StepConfirm  Step = "CONFIRM"
	// StepIssued is terminal and only reachable from CONFIRM through issuance.
	StepIssued Step = "ISSUED"
)

// WizardSteps is the linear sequence the agent walks through.
var WizardSteps = []Step{StepData, StepLocation, StepPhotos, StepReview, StepConfirm}

func (s Step) String() string { return string(s) }

// IsValid reports whether s is a known step, including the terminal one.
func (s Step) IsValid() bool {
	return s == StepIssued || slices.Contains(WizardSteps, s)
}

// Index returns the position of s in WizardSteps, or -1 for ISSUED and unknown steps.
func (s Step) Index() int {
	return slices.Index(WizardSteps, s)
}

// Next returns the step after s. The last wizard step has no successor.
func (s Step) Next() (Step, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(WizardSteps) {
		return s, false
	}
	return WizardSteps[i+1], true
}

// Prev returns the step before s. DATA has no predecessor.
func (s Step) Prev() (Step, bool) {
	i := s.Index()
	if i <= 0 {
		return s, false
	}
	return WizardSteps[i-1], true
}

// ParseStep validates a step key coming from a client.
func ParseStep(raw string) (Step, error) {
	s := Step(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown step: "+raw)
	}
	return s, nil
}
