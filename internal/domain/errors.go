package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while building snapshots and
// computing reports.
var (
	// ErrKeyNotFound indicates that a unit input is missing from the State.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnknownPeriod indicates a period code outside P1..EXAM2.
	ErrUnknownPeriod = errors.New("unknown period")

	// ErrUnknownPeriodGroup indicates an unsupported period group name.
	ErrUnknownPeriodGroup = errors.New("unknown period group")

	// ErrUnknownColumn indicates a rank column outside p1..tg.
	ErrUnknownColumn = errors.New("unknown rank column")

	// ErrUnknownCurriculum indicates a curriculum name other than
	// primary or secondary.
	ErrUnknownCurriculum = errors.New("unknown curriculum")

	// ErrStudentNotFound indicates that a student id is not part of the
	// snapshot.
	ErrStudentNotFound = errors.New("student not found")
)

// StateError names the State key an operation failed on.
type StateError struct {
	Key       string
	Operation string
	Err       error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key string, operation string, err error) *StateError {
	return &StateError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// MissingKey returns a StateError reporting that key is absent from a
// State.
func MissingKey[T any](key Key[T]) *StateError {
	return NewStateError(key.name, "Get", ErrKeyNotFound)
}

// ValidationError collects every problem found in a set of records, so
// that a snapshot with several bad grades is reported in one pass.
type ValidationError struct {
	Entity string
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
