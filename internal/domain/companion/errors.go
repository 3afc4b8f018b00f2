package companion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/companiondir/backend/internal/domain/shared"
)

// Companion errors
var (
	ErrCompanionNotFound      = shared.NewDomainError(shared.CodeNotFound, "Companion not found")
	ErrPageNotFound           = shared.NewDomainError(shared.CodeNotFound, "Page not found")
	ErrHandleTaken            = shared.NewDomainError(shared.CodeConflict, "User name is already registered")
	ErrPasswordMismatch       = shared.NewDomainError(shared.CodeUnauthenticated, "Current password is incorrect")
	ErrUniquenessUnverifiable = shared.NewDomainError(shared.CodeUpstreamUnavailable, "Cannot verify user name uniqueness, retry later")
	ErrCatalogUnavailable     = shared.NewDomainError(shared.CodeUpstreamUnavailable, "Catalog backend unavailable")
	ErrStatusNotWritable      = shared.NewDomainError(shared.CodeInvalidState, "Lifecycle state can only be changed by review")
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any mutation when input is missing or malformed
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors returns true if any field error was recorded
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, shared.ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == shared.ErrValidation
}

// PartialWriteError describes a creation that produced a record but did not
// persist everything. It is reported alongside a successful result, never returned.
type PartialWriteError struct {
	RecordID           int64
	AttributesWritten  int
	AttributesFailed   int
	ImagesPersisted    int
	ImagesRequested    int
	CollectionAdded    bool
	StatusSet          bool
	FailedAttributeKey []string
}

// Error implements the error interface
func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("record %d partially written: %d/%d attributes, %d/%d images, collection=%t, status=%t",
		e.RecordID,
		e.AttributesWritten, e.AttributesWritten+e.AttributesFailed,
		e.ImagesPersisted, e.ImagesRequested,
		e.CollectionAdded, e.StatusSet,
	)
}

// ReconcileError is returned when an update's attribute batch did not fully apply
type ReconcileError struct {
	RecordID int64
	Errors   []AttributeError
	Cause    error
}

// Error implements the error interface
func (e *ReconcileError) Error() string {
	msgs := make([]string, 0, len(e.Errors)+1)
	for _, ae := range e.Errors {
		msgs = append(msgs, ae.Key+": "+ae.Message)
	}
	if e.Cause != nil {
		msgs = append(msgs, e.Cause.Error())
	}
	return fmt.Sprintf("attribute reconciliation failed for record %d: %s", e.RecordID, strings.Join(msgs, "; "))
}

// Unwrap returns the transport error, if any
func (e *ReconcileError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, shared.ErrUpstreamUnavailable) match
func (e *ReconcileError) Is(target error) bool {
	return target == shared.ErrUpstreamUnavailable
}

// IsNotFound reports whether err is a not-found condition
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
