package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	t.Run("error text includes the cause", func(t *testing.T) {
		err := WrapDomainError(CodeUpstreamUnavailable, "Failed to load", fmt.Errorf("timeout"))
		assert.Equal(t, "Failed to load: timeout", err.Error())
		assert.Equal(t, "Failed to load", NewDomainError(CodeNotFound, "Failed to load").Error())
	})

	t.Run("matches sentinels by code", func(t *testing.T) {
		err := NewDomainError(CodeNotFound, "Companion not found")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrConflict))
		assert.True(t, errors.Is(fmt.Errorf("get: %w", err), ErrNotFound))
	})

	t.Run("wrapped errors match their cause and code", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := WrapDomainError(CodeUpstreamUnavailable, "Failed to create record", cause)
		assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("a target carrying a cause is not a sentinel", func(t *testing.T) {
		target := WrapDomainError(CodeNotFound, "x", errors.New("y"))
		assert.False(t, errors.Is(ErrNotFound, target))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(fmt.Errorf("create: %w", ErrConflict)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}
