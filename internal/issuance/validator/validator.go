// Package validator decides whether the wizard may leave a step. Validation is pure:
// it reads the working form and the photo slot map and never touches a store.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"policydesk/internal/issuance/models"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Input is everything a step check may look at.
type Input struct {
	Step        models.Step
	ProductType domain.ProductType
	Form        models.FormData
	// Photos maps requirement ids to whether the slot holds content.
	Photos map[string]bool
}

// Result is either valid, or invalid with a title and a reason for the agent.
type Result struct {
	Valid  bool
	Title  string
	Reason string
}

var valid = Result{Valid: true}

// Err converts an invalid result into a validation error; valid results yield nil.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s: %s", r.Title, r.Reason))
}

// Validate checks the fields the given step collects. REVIEW and CONFIRM collect
// nothing and always pass.
func Validate(in Input) Result {
	switch in.Step {
	case models.StepData:
		return validateData(in.Form.Common)
	case models.StepLocation:
		return validateLocation(in.Form.Location)
	case models.StepPhotos:
		return validatePhotos(in.ProductType, in.Photos)
	default:
		return valid
	}
}

func validateData(c models.CommonData) Result {
	if blank(c.InsuredName) {
		return Result{Title: "Completa los datos del asegurado", Reason: "El nombre del asegurado es obligatorio."}
	}
	if blank(c.InsuredEmail) {
		return Result{Title: "Captura el correo del asegurado", Reason: "Necesitamos un correo para enviar la confirmación."}
	}
	// the stored value is what gets mailed, so surrounding spaces fail the pattern
	if !emailPattern.MatchString(c.InsuredEmail) {
		return Result{Title: "Correo electrónico inválido", Reason: "Verifica el formato del correo del asegurado."}
	}
	return valid
}

func validateLocation(l models.LocationData) Result {
	if blank(l.AddressLine) || blank(l.City) || blank(l.State) || blank(l.PostalCode) {
		return Result{Title: "Completa la ubicación", Reason: "Dirección, ciudad, estado y CP son obligatorios."}
	}
	return valid
}

// Missing photos produce one aggregate message, never one per slot.
func validatePhotos(productType domain.ProductType, photos map[string]bool) Result {
	for _, req := range models.PhotoRequirements(productType) {
		if !photos[req.ID] {
			return Result{Title: "Faltan fotografías", Reason: "Debes capturar las fotos indicadas para continuar."}
		}
	}
	return valid
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
