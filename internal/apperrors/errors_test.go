package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"not found", NotFound("car with id %d not found", 7), KindNotFound},
		{"constraint violation", ConstraintViolation("license plate has to match"), KindConstraintViolation},
		{"invalid state", InvalidState("only online drivers may select a car"), KindInvalidState},
		{"conflict", Conflict("this car is already taken by another driver"), KindConflict},
		{"internal", Internal("could not load car", errors.New("boom")), KindInternal},
		{"untyped error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("car with id %d not found", 7)
	assert.Equal(t, "car with id 7 not found", err.Error())
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("could not load car", cause)

	assert.Equal(t, "could not load car", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("select car: %w", Conflict("this car is already taken by another driver"))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, IsKind(err, KindConflict))
}

func TestIsKind_NilError(t *testing.T) {
	assert.False(t, IsKind(nil, KindNotFound))
}
