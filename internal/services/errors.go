package services

import (
	"errors"
	"fmt"
)

// Error taxonomy of the payment lifecycle. Callers match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidationFailed  = errors.New("validation failed")
	ErrConflictRetry     = errors.New("concurrent update, retry")
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrValidationFailed)
)

func notFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidationFailed)
}
