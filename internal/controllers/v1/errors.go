// Package v1 implements the HTTP handlers for API v1.
package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/centsible/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// httpError is the error shape all endpoints return.
type httpError struct {
	Kind    string `json:"kind" example:"Validation"`
	Message string `json:"message" example:"the transaction date must not be in the future"`
}

func newHTTPError(err error) httpError {
	return httpError{
		Kind:    models.KindOf(err),
		Message: err.Error(),
	}
}

// status returns the HTTP status for a domain error.
func status(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	default:
		// Invariant violations and anything unrecognized are server faults.
		return http.StatusInternalServerError
	}
}

// abortError writes the error response and stops handler processing.
func abortError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(status(err), newHTTPError(err))
}

var (
	errNotBudgetOwner  = fmt.Errorf("%w: you do not have access to this resource", models.ErrForbidden)
	errMissingUserID   = fmt.Errorf("%w: the X-User-ID header must be set to a valid UUID", models.ErrValidation)
	errBudgetParameter = fmt.Errorf("%w: the budget query parameter must be set", models.ErrValidation)
)
