package models

import (
	"slices"
	"time"

	"policydesk/pkg/domain"
)

// PhotoRequirement is one slot of a product's photo checklist.
type PhotoRequirement struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Checklist order is also the review and upload order.
var (
	boatRequirements = []PhotoRequirement{
		{ID: "plate", Label: "Placa del bote", Description: "Foto clara de la placa o matrícula."},
		{ID: "hull", Label: "Casco", Description: "Vista lateral del casco."},
		{ID: "interior", Label: "Interiores", Description: "Cabina y zona de pasajeros."},
		{ID: "engine", Label: "Motor", Description: "Vista del motor principal."},
		{ID: "panoramic", Label: "Panorámica", Description: "Vista general de la embarcación."},
	}
	propertyRequirements = []PhotoRequirement{
		{ID: "facade", Label: "Fachada", Description: "Vista frontal del local."},
		{ID: "interior", Label: "Interior", Description: "Vista general del interior."},
		{ID: "meter", Label: "Medidor", Description: "Fotografía del medidor de luz."},
		{ID: "signage", Label: "Señalización", Description: "Salidas de emergencia / extintores."},
		{ID: "panoramic", Label: "Panorámica", Description: "Vista amplia del local y entorno."},
	}
	genericRequirements = []PhotoRequirement{
		{ID: "front", Label: "Frontal", Description: "Vista frontal del riesgo."},
		{ID: "side", Label: "Lateral", Description: "Vista lateral del riesgo."},
		{ID: "serial", Label: "Serie / placa", Description: "Número de serie o identificación."},
		{ID: "details", Label: "Detalles", Description: "Área crítica o detalles relevantes."},
		{ID: "panoramic", Label: "Panorámica", Description: "Vista general y contexto."},
	}
)

// PhotoRequirements returns a copy of the checklist for a product type. Products
// without a dedicated checklist get the generic one.
func PhotoRequirements(productType domain.ProductType) []PhotoRequirement {
	switch productType {
	case domain.ProductBoats:
		return slices.Clone(boatRequirements)
	case domain.ProductProperty:
		return slices.Clone(propertyRequirements)
	default:
		return slices.Clone(genericRequirements)
	}
}

// FindRequirement looks up a slot id in the product's checklist.
func FindRequirement(productType domain.ProductType, slotID string) (PhotoRequirement, bool) {
	for _, req := range PhotoRequirements(productType) {
		if req.ID == slotID {
			return req, true
		}
	}
	return PhotoRequirement{}, false
}

// PhotoRecord is an uploaded photograph for one requirement slot. Content is
// immutable once uploaded; re-capturing stores new content under a new ContentRef.
type PhotoRecord struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Description  string    `json:"description,omitempty"`
	FileName     string    `json:"file_name,omitempty"`
	ContentRef   string    `json:"content_ref,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	CapturedWith string    `json:"captured_with,omitempty"`
	Device       string    `json:"device,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at,omitzero"`
}

// HasContent reports whether the slot holds uploaded bytes.
func (p PhotoRecord) HasContent() bool {
	return p.ContentRef != ""
}
