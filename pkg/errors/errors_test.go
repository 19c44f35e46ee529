package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesOnCode(t *testing.T) {
	clone := Clone(ErrInvalidTransition, "resolved -> pending not allowed")
	wrapped := fmt.Errorf("transition: %w", clone)

	assert.True(t, stdErrors.Is(wrapped, ErrInvalidTransition))
	assert.False(t, stdErrors.Is(wrapped, ErrNotFound))
	assert.Equal(t, ErrInvalidTransition.Message, "status transition not allowed")
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	withDetails := WithDetails(ErrLowConfidence, "", map[string]interface{}{"confidence": 0.1})

	assert.Nil(t, ErrLowConfidence.Details)
	assert.Equal(t, 0.1, withDetails.Details["confidence"])
	assert.Equal(t, http.StatusUnprocessableEntity, withDetails.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.True(t, HasCode(err, "INTERNAL_ERROR"))
	assert.Nil(t, FromError(nil))
}
