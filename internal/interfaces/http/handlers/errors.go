// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/production-backend/internal/pkg/apperr"
)

// respondError maps domain errors onto HTTP status codes. Unknown errors
// are reported as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, apperr.ErrAuthorization):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrDepartmentMismatch),
		errors.Is(err, apperr.ErrReassignmentDenied),
		errors.Is(err, apperr.ErrAlreadyCompleted),
		errors.Is(err, apperr.ErrNegativeStock),
		errors.Is(err, apperr.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
