package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	errInvalidTitle := Validation("title", "invalid_title", "title is required")
	wrapped := fmt.Errorf("create issue: %w", errInvalidTitle)

	assert.True(t, errors.Is(wrapped, ErrValidation))
	assert.True(t, errors.Is(wrapped, errInvalidTitle))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, Validation("key", "invalid_key", "")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Upstream("directory_unavailable", "directory request failed").Wrap(cause)

	assert.True(t, errors.Is(err, ErrUpstream))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")

	kind, ok := KindOf(fmt.Errorf("outer: %w", err))
	assert.True(t, ok)
	assert.Equal(t, KindUpstream, kind)
}
