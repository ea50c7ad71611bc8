package proxy

import (
	"errors"
	"fmt"
)

// ErrInvalidTarget indicates an unusable backend URL.
var ErrInvalidTarget = errors.New("invalid backend target")

// ProxyError describes a failed proxy operation.
type ProxyError struct {
	Op     string
	Target string
	Cause  error
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy %s %s: %v", e.Op, e.Target, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// NewProxyError creates a new ProxyError.
func NewProxyError(op, target string, cause error) *ProxyError {
	return &ProxyError{Op: op, Target: target, Cause: cause}
}

// NewInvalidTargetError creates an error for an unusable backend URL.
func NewInvalidTargetError(target string, cause error) *ProxyError {
	return &ProxyError{Op: "parse", Target: target, Cause: fmt.Errorf("%w: %w", ErrInvalidTarget, cause)}
}
