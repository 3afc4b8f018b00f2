package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match on the shared sentinels below with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.cause == nil
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps the underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes shared by every bounded context
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_FAILED"
	CodeConflict            = "CONFLICT"
	CodeUnauthenticated     = "AUTHENTICATION_FAILED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInvalidState        = "INVALID_STATE"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConflict            = NewDomainError(CodeConflict, "Resource already exists")
	ErrUnauthenticated     = NewDomainError(CodeUnauthenticated, "Authentication failed")
	ErrUpstreamUnavailable = NewDomainError(CodeUpstreamUnavailable, "Upstream service unavailable, retry later")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// CodeOf returns the domain code carried by err, or "" when err is not a DomainError
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
