// internal/pkg/apperr/errors.go
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for every failure class the domain can produce. Callers
// classify with errors.Is and render messages from the wrapped detail.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDepartmentMismatch = errors.New("department mismatch")
	ErrReassignmentDenied = errors.New("reassignment denied")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrAlreadyCompleted   = errors.New("already completed")
	ErrNegativeStock      = errors.New("stock cannot go negative")
	ErrConcurrentUpdate   = errors.New("concurrent update conflict")
	ErrSequenceExhausted  = errors.New("sequence generator exhausted")
	ErrAuthorization      = errors.New("not authorized")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with the missing entity and its identifier.
func NotFoundf(entity string, id interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, id)
}

// Conflictf wraps ErrConflict with a formatted detail message.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// InvalidTransitionf wraps ErrInvalidTransition carrying the current and
// requested status values.
func InvalidTransitionf(current, next string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, current, next)
}

// Authorizationf wraps ErrAuthorization with a formatted detail message.
func Authorizationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}
