// Package util provides shared error types for the gateway.
//
// # Error Conventions
//
//   - Sentinel errors (errors.New) for stable conditions callers check
//     with errors.Is.
//   - Structured error types for errors that carry fields. Each type
//     implements Error(), Unwrap() (if wrapping) and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping.
//
// Broken pipeline invariants (a check completed twice, for example) are
// not errors: they panic with a *ContractViolation.
package util

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrConfigInvalid matches every configuration and validation error.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrBackendUnavail matches service control failures worth retrying:
	// unreachable endpoints and 5xx answers.
	ErrBackendUnavail = errors.New("service control unavailable")
)

// ValidationError collects field-level validation failures.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface. Fields are listed in sorted order.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("validation error: %s (%s)", e.Message, strings.Join(parts, "; "))
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// TransportError is returned when the service control endpoint answers
// with a non-success HTTP status.
type TransportError struct {
	Operation  string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed with HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Is checks if the error matches the target.
func (e *TransportError) Is(target error) bool {
	if target == ErrBackendUnavail {
		return e.StatusCode >= 500
	}
	_, ok := target.(*TransportError)
	return ok
}

// ContractViolation is the panic value used when a caller breaks a
// pipeline invariant.
type ContractViolation struct {
	Contract string
}

// Error implements the error interface.
func (e *ContractViolation) Error() string {
	return "contract violation: " + e.Contract
}
