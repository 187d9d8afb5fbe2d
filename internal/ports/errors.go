package ports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errors raised at the edges of a report run: configuration files, the
// report cache, and unit deadlines.
var (
	// ErrServiceUnavailable means the report cache could not be reached.
	// Callers recompute instead of failing.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout means a unit overran its execution_timeout_seconds.
	ErrTimeout = errors.New("operation timed out")

	// ErrCacheCorrupted means a cached report could not be decoded.
	ErrCacheCorrupted = errors.New("cache corrupted")

	// ErrConfigNotFound means a report configuration or snapshot path does
	// not exist.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUnsupportedUnitType indicates that no factory is registered for a
	// unit type.
	ErrUnsupportedUnitType = errors.New("unsupported unit type")
)

// UnitError represents a failure of one report unit for one class.
type UnitError struct {
	// Unit is the name of the unit that failed.
	Unit string

	// ClassID identifies the class whose report was being computed.
	ClassID string

	// Err is the underlying error that occurred.
	Err error

	// Elapsed is how long the unit ran before failing.
	Elapsed time.Duration
}

// Error implements the error interface for UnitError.
func (e *UnitError) Error() string {
	msg := fmt.Sprintf("unit error: unit=%s, err=%v", e.Unit, e.Err)
	if e.ClassID != "" {
		msg += fmt.Sprintf(", class_id=%s", e.ClassID)
	}
	if e.Elapsed > 0 {
		msg += fmt.Sprintf(", elapsed=%v", e.Elapsed)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *UnitError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is temporary and the class can be
// computed again.
func (e *UnitError) IsRetryable() bool {
	// Data errors are final; only timeouts and unavailable services are not.
	return errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout) ||
		errors.Is(e.Err, context.DeadlineExceeded)
}

// NewUnitError creates a new UnitError with the given details.
func NewUnitError(unit, classID string, err error) *UnitError {
	return &UnitError{
		Unit:    unit,
		ClassID: classID,
		Err:     err,
	}
}

// CacheError is a failed Get, Set, Delete, or Clear on a CacheStore.
type CacheError struct {
	Key       string
	Operation string
	Err       error
}

// Error implements the error interface for CacheError.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError creates a new CacheError with the given details.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError ties an error to the configuration key or file path that
// caused it.
type ConfigError struct {
	ConfigKey string
	Err       error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
