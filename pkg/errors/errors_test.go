package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrLockHeld, "held by op-2")
	assert.Equal(t, "held by op-2", cloned.Message)
	assert.True(t, stdErrors.Is(cloned, ErrLockHeld))
	assert.False(t, stdErrors.Is(cloned, ErrConflict))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestFromErrorUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", Clone(ErrDuplicateIdentifier, "ABC123 already used"))
	appErr := FromError(wrapped)
	assert.Equal(t, "DUPLICATE_IDENTIFIER", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestWithDetails(t *testing.T) {
	appErr := WithDetails(ErrLimitExceeded, map[string]interface{}{"remaining": "100.00"})
	assert.Equal(t, "100.00", appErr.Details["remaining"])
	assert.Nil(t, ErrLimitExceeded.Details)
}
