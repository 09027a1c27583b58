package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("boom")

	transient := NewTransientError(cause)
	assert.True(t, IsTransient(transient))
	assert.False(t, IsFatal(transient))
	assert.ErrorIs(t, transient, cause)

	fatal := NewFatalError(cause)
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsTransient(fatal))
	assert.ErrorIs(t, fatal, cause)

	// Classification survives further wrapping.
	wrapped := fmt.Errorf("attempt 2: %w", transient)
	assert.True(t, IsTransient(wrapped))

	assert.False(t, IsTransient(cause))
	assert.False(t, IsFatal(cause))
	assert.False(t, IsFatal(nil))
}
