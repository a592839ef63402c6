package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "quote not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches code nested under fmt wrapping", func(t *testing.T) {
		inner := New(CodeValidation, "insured email required")
		err := fmt.Errorf("advance: %w", Wrap(inner, CodeIssuanceFailed, "issue failed"))
		assert.True(t, HasCode(err, CodeIssuanceFailed))
		assert.True(t, HasCode(err, CodeValidation))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.Equal(t, "boom", MessageOf(err))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(cause, CodeInternal, "failed to load session")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load session: redis down", err.Error())
	assert.Equal(t, "failed to load session", MessageOf(err))
}
