package models

import "policydesk/pkg/domain"

// FormData is the agent-entered content of an issuance. Boat and Property are
// allocated only for the product types that carry them.
type FormData struct {
	Common   CommonData    `json:"common"`
	Location LocationData  `json:"location"`
	Boat     *BoatData     `json:"boat,omitempty"`
	Property *PropertyData `json:"property,omitempty"`
}

type CommonData struct {
	InsuredName  string `json:"insured_name"`
	InsuredRFC   string `json:"insured_rfc,omitempty"`
	InsuredEmail string `json:"insured_email,omitempty"`
}

type LocationData struct {
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Latitude    string `json:"latitude,omitempty"`
	Longitude   string `json:"longitude,omitempty"`
}

type BoatData struct {
	Brand        string `json:"boat_brand"`
	Model        string `json:"boat_model"`
	Length       string `json:"boat_length"`
	Registration string `json:"registration"`
}

type PropertyData struct {
	BusinessName string `json:"business_name"`
	Activity     string `json:"activity"`
	SquareMeters string `json:"square_meters"`
}

// SeedForm builds the initial form for a quote: the insured defaults to the quote's
// customer and the product-specific section is pre-allocated.
func SeedForm(productType domain.ProductType, customerName, riskObjectName string) FormData {
	form := FormData{Common: CommonData{InsuredName: customerName}}
	if productType.HasBoatSection() {
		form.Boat = &BoatData{}
	}
	if productType.HasPropertySection() {
		form.Property = &PropertyData{BusinessName: riskObjectName}
	}
	return form
}

// Clone returns a deep copy; the optional sections are not shared.
func (f FormData) Clone() FormData {
	out := f
	if f.Boat != nil {
		boat := *f.Boat
		out.Boat = &boat
	}
	if f.Property != nil {
		property := *f.Property
		out.Property = &property
	}
	return out
}

// FormPatch is a partial form update. A nil pointer leaves the field untouched; a
// pointer to "" clears it.
type FormPatch struct {
	Common   *CommonPatch   `json:"common,omitempty"`
	Location *LocationPatch `json:"location,omitempty"`
	Boat     *BoatPatch     `json:"boat,omitempty"`
	Property *PropertyPatch `json:"property,omitempty"`
}

type CommonPatch struct {
	InsuredName  *string `json:"insured_name,omitempty"`
	InsuredRFC   *string `json:"insured_rfc,omitempty"`
	InsuredEmail *string `json:"insured_email,omitempty"`
}

type LocationPatch struct {
	AddressLine *string `json:"address_line,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	Latitude    *string `json:"latitude,omitempty"`
	Longitude   *string `json:"longitude,omitempty"`
}

type BoatPatch struct {
	Brand        *string `json:"boat_brand,omitempty"`
	Model        *string `json:"boat_model,omitempty"`
	Length       *string `json:"boat_length,omitempty"`
	Registration *string `json:"registration,omitempty"`
}

type PropertyPatch struct {
	BusinessName *string `json:"business_name,omitempty"`
	Activity     *string `json:"activity,omitempty"`
	SquareMeters *string `json:"square_meters,omitempty"`
}

// IsEmpty reports whether the patch carries no sections at all.
func (p FormPatch) IsEmpty() bool {
	return p.Common == nil && p.Location == nil && p.Boat == nil && p.Property == nil
}

// Merge applies p field by field and returns the merged copy; f is not modified.
// Sections the form does not carry (boat on a PROPERTY session, for example) are ignored.
func (f FormData) Merge(p FormPatch) FormData {
	out := f.Clone()
	if c := p.Common; c != nil {
		set(&out.Common.InsuredName, c.InsuredName)
		set(&out.Common.InsuredRFC, c.InsuredRFC)
		set(&out.Common.InsuredEmail, c.InsuredEmail)
	}
	if l := p.Location; l != nil {
		set(&out.Location.AddressLine, l.AddressLine)
		set(&out.Location.City, l.City)
		set(&out.Location.State, l.State)
		set(&out.Location.PostalCode, l.PostalCode)
		set(&out.Location.Latitude, l.Latitude)
		set(&out.Location.Longitude, l.Longitude)
	}
	if b := p.Boat; b != nil && out.Boat != nil {
		set(&out.Boat.Brand, b.Brand)
		set(&out.Boat.Model, b.Model)
		set(&out.Boat.Length, b.Length)
		set(&out.Boat.Registration, b.Registration)
	}
	if pr := p.Property; pr != nil && out.Property != nil {
		set(&out.Property.BusinessName, pr.BusinessName)
		set(&out.Property.Activity, pr.Activity)
		set(&out.Property.SquareMeters, pr.SquareMeters)
	}
	return out
}

// PatchFrom builds the patch that turns any form into a copy of f.
func PatchFrom(f FormData) FormPatch {
	p := FormPatch{
		Common: &CommonPatch{
			InsuredName:  ptr(f.Common.InsuredName),
			InsuredRFC:   ptr(f.Common.InsuredRFC),
			InsuredEmail: ptr(f.Common.InsuredEmail),
		},
		Location: &LocationPatch{
			AddressLine: ptr(f.Location.AddressLine),
			City:        ptr(f.Location.City),
			State:       ptr(f.Location.State),
			PostalCode:  ptr(f.Location.PostalCode),
			Latitude:    ptr(f.Location.Latitude),
			Longitude:   ptr(f.Location.Longitude),
		},
	}
	if f.Boat != nil {
		p.Boat = &BoatPatch{
			Brand:        ptr(f.Boat.Brand),
			Model:        ptr(f.Boat.Model),
			Length:       ptr(f.Boat.Length),
			Registration: ptr(f.Boat.Registration),
		}
	}
	if f.Property != nil {
		p.Property = &PropertyPatch{
			BusinessName: ptr(f.Property.BusinessName),
			Activity:     ptr(f.Property.Activity),
			SquareMeters: ptr(f.Property.SquareMeters),
		}
	}
	return p
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func ptr(s string) *string { return &s }
