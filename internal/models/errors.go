package models

import (
	"errors"
	"fmt"
)

// The error kinds below form the taxonomy every error returned by the engine
// belongs to. Specific errors wrap exactly one kind so that controllers can
// map them to HTTP statuses with errors.Is.
var (
	ErrNotFound   = errors.New("there is no")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("invalid request")
	ErrForbidden  = errors.New("you are not allowed to access this resource")
	ErrInvariant  = errors.New("balance invariant violated")
	ErrGeneral    = errors.New("an error occurred on the server during your request")
)

// Uniqueness violations.
var (
	ErrBudgetNameNotUnique   = fmt.Errorf("%w: you already have a budget with this name", ErrConflict)
	ErrAccountNameNotUnique  = fmt.Errorf("%w: the account name must be unique for the budget", ErrConflict)
	ErrGroupNameNotUnique    = fmt.Errorf("%w: the category group name must be unique for the budget", ErrConflict)
	ErrCategoryNameNotUnique = fmt.Errorf("%w: the category name must be unique for the category group", ErrConflict)
	ErrBalanceMonthNotUnique = fmt.Errorf("%w: a category balance for this category and month already exists", ErrConflict)
)

// KindOf returns the taxonomy kind for an error as a string for error responses.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrInvariant):
		return "InvariantViolation"
	case errors.Is(err, ErrValidation):
		return "Validation"
	default:
		return "Unexpected"
	}
}
