// Package apperr holds the error kinds shared by services and mapped to
// transport responses only at the API boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInternal      = errors.New("internal error")

	// Auth flow.
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUnauthorized   = errors.New("could not validate credentials")
	ErrInvalidReset   = errors.New("invalid email or security answer")

	// Mind-map payload.
	ErrMalformedJSON      = errors.New("invalid JSON format")
	ErrDescriptionTooLong = errors.New("node description too long")

	ErrValidation = errors.New("validation error")
)

// ValidationError reports a rejected input field together with the rule it broke.
type ValidationError struct {
	Field  string
	Reason string
}

// Validation builds a *ValidationError.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
