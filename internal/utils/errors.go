// internal/utils/errors.go
package utils

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidLicense     = errors.New("invalid license")
	ErrExternalDependency = errors.New("external dependency failure")
)

// ValidationError is a malformed identifier, address or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError carries a remediation hint for the caller.
type NotFoundError struct {
	Resource string
	ID       string
	Hint     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UnauthorizedError means the resource exists but the caller may not act on it.
type UnauthorizedError struct {
	Action string
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized to %s: %s", e.Action, e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// ExternalDependencyError wraps a failed chain, storage or payment call.
type ExternalDependencyError struct {
	Dependency string
	Op         string
	Err        error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Dependency, e.Op, e.Err)
}

func (e *ExternalDependencyError) Unwrap() error { return e.Err }

func (e *ExternalDependencyError) Is(target error) bool { return target == ErrExternalDependency }

func NewExternalDependencyError(dependency, op string, err error) *ExternalDependencyError {
	return &ExternalDependencyError{Dependency: dependency, Op: op, Err: err}
}

// InvariantError is raised through panic when a calculator or catalog
// produces values that break a bookkeeping invariant.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Message
}

// InvariantViolation panics; it must never be used for bad input.
func InvariantViolation(format string, args ...interface{}) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
