package validation

import (
	"errors"
	"fmt"
)

// ValidationError represents a validation error on a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewError creates a validation error for field
func NewError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

/* AsValidationError unwraps err into a *ValidationError if it holds one */
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
