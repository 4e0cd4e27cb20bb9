package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := Newf(NotActual, "darkness", "versions differ")
	wrapped := fmt.Errorf("predict: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotActual))
	assert.False(t, errors.Is(wrapped, ErrNotTrained))
	assert.Equal(t, NotActual, KindOf(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("boom")))
	assert.Equal(t, defaultDescriptions[Unknown], Describe(errors.New("boom")))
}

func TestTextFallsBack(t *testing.T) {
	assert.Equal(t, defaultDescriptions[NotEnoughData], New(NotEnoughData, "x", "").Text())

	cause := errors.New("missing dependent variable")
	e := Wrap(BadRequest, "x", cause)
	assert.Equal(t, "missing dependent variable", e.Text())
	assert.ErrorIs(t, e, cause)

	unknown := Wrap(Unknown, "x", errors.New("disk full"))
	assert.Equal(t, defaultDescriptions[Unknown], unknown.Text())
	assert.Contains(t, unknown.Error(), "disk full")
}
