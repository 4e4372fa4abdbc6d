package filter

import (
	"errors"
	"fmt"
)

// ErrFilterValidation is wrapped by every *ValidationError.
var ErrFilterValidation = errors.New("filter validation failed")

// ValidationError names the offending part of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrFilterValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrFilterValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrFilterValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
