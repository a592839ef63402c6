package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
)

var fixedNow = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func newBoatSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(domain.NewSessionID(), "q-001", domain.ProductBoats,
		SeedForm(domain.ProductBoats, "Marina del Pacífico S.A. de C.V.", ""), fixedNow)
	require.NoError(t, err)
	return s
}

func TestNewSession(t *testing.T) {
	s := newBoatSession(t)
	assert.Equal(t, StepData, s.CurrentStep)
	assert.True(t, s.IsInProgress())
	assert.Empty(t, s.Photos)
	assert.Nil(t, s.PolicyID)

	_, err := NewSession(domain.SessionID{}, "q-001", domain.ProductBoats, FormData{}, fixedNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewSession(domain.NewSessionID(), "", domain.ProductBoats, FormData{}, fixedNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := newBoatSession(t)
	s.Photos = append(s.Photos, PhotoRecord{ID: "plate", ContentRef: "blob-1"})

	c := s.Clone()
	c.Data.Boat.Brand = "changed"
	c.Photos[0].FileName = "changed.jpg"

	assert.Equal(t, "", s.Data.Boat.Brand)
	assert.Equal(t, "", s.Photos[0].FileName)
}

func TestApplyUpdate(t *testing.T) {
	later := fixedNow.Add(time.Minute)

	t.Run("photos retained unless a list is provided", func(t *testing.T) {
		s := newBoatSession(t)
		s.Photos = []PhotoRecord{{ID: "plate", ContentRef: "blob-1"}}

		s.ApplyUpdate(StepUpdate{Form: &FormPatch{Common: &CommonPatch{InsuredEmail: str("ops@marina.mx")}}}, later)
		assert.Len(t, s.Photos, 1)
		assert.Equal(t, "ops@marina.mx", s.Data.Common.InsuredEmail)
		assert.Equal(t, later, s.UpdatedAt)

		empty := []PhotoRecord{}
		s.ApplyUpdate(StepUpdate{Photos: &empty}, later)
		assert.Empty(t, s.Photos)
	})

	t.Run("persists current step when provided", func(t *testing.T) {
		s := newBoatSession(t)
		step := StepPhotos
		s.ApplyUpdate(StepUpdate{CurrentStep: &step}, later)
		assert.Equal(t, StepPhotos, s.CurrentStep)
	})
}

func TestApplyPhoto(t *testing.T) {
	s := newBoatSession(t)
	s.ApplyPhoto(PhotoRecord{ID: "hull", Label: "Casco", Description: "Vista lateral del casco.", FileName: "a.jpg", ContentRef: "r1"}, fixedNow)
	s.ApplyPhoto(PhotoRecord{ID: "hull", Label: "ignored", FileName: "b.jpg", ContentRef: "r2"}, fixedNow)

	require.Len(t, s.Photos, 1)
	rec, ok := s.Photo("hull")
	require.True(t, ok)
	assert.Equal(t, "Casco", rec.Label, "existing label is preserved")
	assert.Equal(t, "Vista lateral del casco.", rec.Description)
	assert.Equal(t, "b.jpg", rec.FileName)
	assert.Equal(t, "r2", rec.ContentRef)
	assert.Equal(t, map[string]bool{"hull": true}, s.PhotoPresence())
}

func TestCompletion(t *testing.T) {
	s := newBoatSession(t)
	require.NoError(t, s.CanComplete())

	pid := domain.NewPolicyID()
	s.ApplyCompletion(pid, fixedNow)

	assert.Equal(t, SessionStatusCompleted, s.Status)
	assert.Equal(t, StepIssued, s.CurrentStep)
	require.NotNil(t, s.PolicyID)
	assert.Equal(t, pid, *s.PolicyID)
	assert.True(t, dErrors.HasCode(s.CanComplete(), dErrors.CodeInvalidState))
	assert.True(t, dErrors.HasCode(s.CanUpdate(), dErrors.CodeInvalidState))
}

func TestStepUpdateValidate(t *testing.T) {
	issued := StepIssued
	assert.Error(t, StepUpdate{CurrentStep: &issued}.Validate())

	dup := []PhotoRecord{{ID: "hull"}, {ID: "hull"}}
	assert.Error(t, StepUpdate{Photos: &dup}.Validate())

	review := StepReview
	assert.NoError(t, StepUpdate{CurrentStep: &review}.Validate())
}

func TestStepSequence(t *testing.T) {
	next, ok := StepData.Next()
	assert.True(t, ok)
	assert.Equal(t, StepLocation, next)

	_, ok = StepConfirm.Next()
	assert.False(t, ok, "CONFIRM only leaves through issuance")

	_, ok = StepData.Prev()
	assert.False(t, ok)

	prev, ok := StepReview.Prev()
	assert.True(t, ok)
	assert.Equal(t, StepPhotos, prev)

	assert.Equal(t, -1, StepIssued.Index())

	_, err := ParseStep("SHIPPING")
	assert.Error(t, err)
}

func TestPhotoRequirements(t *testing.T) {
	ids := func(reqs []PhotoRequirement) []string {
		out := make([]string, len(reqs))
		for i, r := range reqs {
			out[i] = r.ID
		}
		return out
	}
	assert.Equal(t, []string{"plate", "hull", "interior", "engine", "panoramic"}, ids(PhotoRequirements(domain.ProductBoats)))
	assert.Equal(t, []string{"facade", "interior", "meter", "signage", "panoramic"}, ids(PhotoRequirements(domain.ProductProperty)))
	assert.Equal(t, []string{"front", "side", "serial", "details", "panoramic"}, ids(PhotoRequirements(domain.ProductAviation)))
	assert.Equal(t, []string{"front", "side", "serial", "details", "panoramic"}, ids(PhotoRequirements("CYBER")))

	reqs := PhotoRequirements(domain.ProductBoats)
	reqs[0].Label = "mutated"
	assert.Equal(t, "Placa del bote", PhotoRequirements(domain.ProductBoats)[0].Label)

	_, ok := FindRequirement(domain.ProductBoats, "meter")
	assert.False(t, ok)
}
