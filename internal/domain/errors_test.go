package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("deckID", "is required", ErrValidation)

	assert.EqualError(t, err, "deckID is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrInvalidID)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "deckID", verr.Field)
}
