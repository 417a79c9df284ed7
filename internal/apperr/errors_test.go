package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundMatchesSentinelAndNamesID(t *testing.T) {
	err := fmt.Errorf("add role: %w", NotFound("principal", "42"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "principal 42 not found")
}

func TestAlreadyAssigned(t *testing.T) {
	err := AlreadyAssigned("abc")
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
	assert.Contains(t, err.Error(), "abc")
}

func TestValidationError(t *testing.T) {
	err := error(&ValidationError{Fields: []FieldError{
		{Field: "email", Message: "must be a valid email"},
		{Field: "password", Message: "is required"},
	}})
	assert.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, "validation failed: email: must be a valid email; password: is required", err.Error())
}
