package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Detail is a single field- or row-level problem collected during validation.
type Detail struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Row     *int   `json:"row,omitempty"`
	Message string `json:"message"`
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Details []Detail `json:"details,omitempty"`
	Err     error    `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusUnprocessableEntity, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrIdentityMismatch     = New("IDENTITY_MISMATCH", http.StatusUnprocessableEntity, "identity could not be verified for the selected region")
	ErrDistanceIncompatible = New("DISTANCE_INCOMPATIBLE", http.StatusUnprocessableEntity, "Calendared distance cannot be greater than Route distance. Please select 'Use route distance' or select a different route")
	ErrNoChangesSubmitted   = New("NO_CHANGES_SUBMITTED", http.StatusUnprocessableEntity, "You have not made any changes. Use cancel if you just want to abandon.")
	ErrBackendCommitFailed  = New("BACKEND_COMMIT_FAILED", http.StatusBadGateway, "The server returned an error when posting your changes.")
	ErrRouteNotEligible     = New("ROUTE_NOT_ELIGIBLE", http.StatusUnprocessableEntity, "route is not available for this event")
	ErrEventNotEditable     = New("EVENT_NOT_EDITABLE", http.StatusUnprocessableEntity, "event cannot be changed")
	ErrWorkflowClosed       = New("WORKFLOW_CLOSED", http.StatusConflict, "workflow has already ended")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	clone.Details = append([]Detail(nil), err.Details...)
	return &clone
}

// WithDetails returns a copy of err carrying the provided details.
func WithDetails(err *Error, details ...Detail) *Error {
	clone := Clone(err, "")
	if clone == nil {
		return nil
	}
	clone.Details = append(clone.Details, details...)
	return clone
}

// NewDetail builds a detail using the template's code and message unless message is set.
func NewDetail(template *Error, field string, message string) Detail {
	if message == "" {
		message = template.Message
	}
	return Detail{Code: template.Code, Field: field, Message: message}
}

// RowDetail builds a detail scoped to a submitted row.
func RowDetail(template *Error, row int, message string) Detail {
	d := NewDetail(template, "", message)
	r := row
	d.Row = &r
	return d
}
