package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policydesk/pkg/domain"
)

func str(s string) *string { return &s }

func TestSeedForm(t *testing.T) {
	t.Run("boats pre-allocate an empty vessel section", func(t *testing.T) {
		form := SeedForm(domain.ProductBoats, "Marina del Pacífico S.A. de C.V.", `Velero "Amanecer" 32 pies`)
		assert.Equal(t, "Marina del Pacífico S.A. de C.V.", form.Common.InsuredName)
		require.NotNil(t, form.Boat)
		assert.Equal(t, BoatData{}, *form.Boat)
		assert.Nil(t, form.Property)
	})

	t.Run("property pre-fills the business name from the risk object", func(t *testing.T) {
		form := SeedForm(domain.ProductProperty, "Cafetería La Esquina", "Local Av. Reforma 120")
		require.NotNil(t, form.Property)
		assert.Equal(t, "Local Av. Reforma 120", form.Property.BusinessName)
		assert.Nil(t, form.Boat)
	})

	t.Run("other products carry neither section", func(t *testing.T) {
		form := SeedForm(domain.ProductAviation, "AeroServicios del Norte", "Avión Cessna 208B")
		assert.Nil(t, form.Boat)
		assert.Nil(t, form.Property)
		assert.Equal(t, LocationData{}, form.Location)
	})
}

func TestMergeKeepsAbsentFields(t *testing.T) {
	prior := FormData{Common: CommonData{InsuredName: "X", InsuredRFC: "ABC"}}

	merged := prior.Merge(FormPatch{Common: &CommonPatch{InsuredName: str("Y")}})

	assert.Equal(t, "Y", merged.Common.InsuredName)
	assert.Equal(t, "ABC", merged.Common.InsuredRFC)
	assert.Equal(t, "X", prior.Common.InsuredName, "merge must not modify the receiver")
}

func TestMerge(t *testing.T) {
	base := SeedForm(domain.ProductBoats, "Tours Bahía Azul", "")
	base.Location = LocationData{AddressLine: "Muelle 4", City: "Ensenada", State: "BC", PostalCode: "22800"}
	base.Boat.Brand = "Beneteau"

	t.Run("non-nil empty string clears a field", func(t *testing.T) {
		merged := base.Merge(FormPatch{Location: &LocationPatch{City: str("")}})
		assert.Equal(t, "", merged.Location.City)
		assert.Equal(t, "Muelle 4", merged.Location.AddressLine)
	})

	t.Run("nested sections merge independently", func(t *testing.T) {
		merged := base.Merge(FormPatch{
			Location: &LocationPatch{Latitude: str("31.86")},
			Boat:     &BoatPatch{Length: str("28")},
		})
		assert.Equal(t, "31.86", merged.Location.Latitude)
		assert.Equal(t, "22800", merged.Location.PostalCode)
		assert.Equal(t, "Beneteau", merged.Boat.Brand)
		assert.Equal(t, "28", merged.Boat.Length)
	})

	t.Run("sections the product does not carry are ignored", func(t *testing.T) {
		merged := base.Merge(FormPatch{Property: &PropertyPatch{Activity: str("retail")}})
		assert.Nil(t, merged.Property)
	})

	t.Run("merged copy does not alias the receiver", func(t *testing.T) {
		merged := base.Merge(FormPatch{Boat: &BoatPatch{Model: str("Oceanis")}})
		assert.Equal(t, "", base.Boat.Model)
		assert.Equal(t, "Oceanis", merged.Boat.Model)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		assert.True(t, FormPatch{}.IsEmpty())
		assert.Equal(t, base, base.Merge(FormPatch{}))
	})
}

func TestPatchFromReproducesForm(t *testing.T) {
	src := SeedForm(domain.ProductProperty, "Farmacia del Valle", "Local Plaza del Valle")
	src.Common.InsuredEmail = "contacto@farmacia.mx"
	src.Location.PostalCode = "06600"

	target := SeedForm(domain.ProductProperty, "otro", "otro")
	assert.Equal(t, src, target.Merge(PatchFrom(src)))
}
