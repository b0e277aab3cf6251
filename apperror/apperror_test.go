package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stevemurr/circular-table-server/apperror"
)

func TestPredicates(t *testing.T) {
	assert.True(t, apperror.IsValidation(apperror.NewValidation("bad")))
	assert.True(t, apperror.IsNotFound(apperror.NewNotFound("gone")))
	assert.True(t, apperror.IsConflict(apperror.NewConflict("race", nil)))
	assert.True(t, apperror.IsUnavailable(apperror.NewUnavailable("down", nil)))
	assert.True(t, apperror.IsInternal(apperror.NewInternal("boom", nil)))
	assert.False(t, apperror.IsNotFound(errors.New("plain")))
}

func TestWrapKeepsTypeAndMessage(t *testing.T) {
	base := apperror.NewNotFound("Restaurant not found")
	wrapped := fmt.Errorf("outer: %w", apperror.Wrap(base, "update"))

	assert.True(t, apperror.IsNotFound(wrapped))
	assert.Equal(t, apperror.TypeNotFound, apperror.TypeOf(wrapped))
	assert.Equal(t, "Restaurant not found", apperror.MessageOf(wrapped))
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	cause := errors.New("disk full")
	err := apperror.Wrap(cause, "failed to add restaurant")

	assert.True(t, apperror.IsInternal(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to add restaurant", apperror.MessageOf(err))
	assert.Nil(t, apperror.Wrap(nil, "noop"))
}

func TestMessageOfUnknownError(t *testing.T) {
	assert.Equal(t, "Internal server error", apperror.MessageOf(errors.New("secret detail")))
	assert.Equal(t, apperror.TypeInternal, apperror.TypeOf(errors.New("x")))
}
