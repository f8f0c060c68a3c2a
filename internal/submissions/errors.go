package submissions

import (
	"errors"

	"github.com/diewo77/gedoc/validation"
)

var (
	ErrNotFound             = errors.New("submission not found")
	ErrDuplicateTransaction = errors.New("transaction reference already used")
	ErrNotUnlocked          = errors.New("pdf not unlocked")
	ErrInvalidAction        = errors.New("invalid action")
	ErrInvalidStatus        = errors.New("invalid status filter")
)

// ValidationError carries field violations of a create request.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string { return "validation failed" }
