package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/production-backend/internal/pkg/apperr"
)

func TestConstructors_ClassifyWithErrorsIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", apperr.Validationf("quantity %d is out of range", 7), apperr.ErrValidation},
		{"not found", apperr.NotFoundf("order", 42), apperr.ErrNotFound},
		{"conflict", apperr.Conflictf("order number %s taken", "ORD-1"), apperr.ErrConflict},
		{"transition", apperr.InvalidTransitionf("pending", "delivered"), apperr.ErrInvalidTransition},
		{"authorization", apperr.Authorizationf("role %s denied", "chef"), apperr.ErrAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestConstructors_KeepDetailInMessage(t *testing.T) {
	err := apperr.NotFoundf("order", 42)
	assert.Contains(t, err.Error(), "order 42")

	err = apperr.InvalidTransitionf("pending", "delivered")
	assert.Contains(t, err.Error(), "from pending to delivered")
}

func TestClassification_SurvivesFurtherWrapping(t *testing.T) {
	inner := apperr.Validationf("bad input")
	outer := fmt.Errorf("creating order: %w", inner)

	assert.True(t, errors.Is(outer, apperr.ErrValidation))
	assert.False(t, errors.Is(outer, apperr.ErrNotFound))
}
