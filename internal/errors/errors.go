package errors

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is returned when the referenced account or record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCredentials is returned for an unknown username or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDependentRecords is returned when a foreign key still references the row being removed.
	ErrDependentRecords = errors.New("dependent records block deletion")
	// ErrIDMismatch is returned when the path id and the payload id differ.
	ErrIDMismatch = errors.New("path id does not match account id")
)

// Kind tags the outcome of a lifecycle operation.
type Kind string

const (
	KindSuccess            Kind = "success"
	KindNotFound           Kind = "not_found"
	KindValidation         Kind = "validation_error"
	KindConflict           Kind = "conflict"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindFailure            Kind = "failure"
)

// ValidationError carries user-facing messages for malformed input.
type ValidationError struct {
	Messages []string
}

// NewValidationError builds a ValidationError from one or more messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// ConflictError reports a uniqueness violation or a dependent-record block.
// Field is empty when the conflicting column could not be determined.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflict builds a ConflictError for a unique field.
func NewConflict(field string) *ConflictError {
	switch field {
	case "username":
		return &ConflictError{Field: field, Message: "username is already taken"}
	case "email":
		return &ConflictError{Field: field, Message: "email is already registered"}
	default:
		return &ConflictError{Field: field, Message: "an account with this unique value already exists"}
	}
}

// KindOf classifies err into the tagged outcome exposed to callers.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var validationErr *ValidationError
	var conflictErr *ConflictError
	switch {
	case errors.As(err, &validationErr), errors.Is(err, ErrIDMismatch):
		return KindValidation
	case errors.As(err, &conflictErr):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	default:
		return KindFailure
	}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Field  string   `json:"field,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Response   ErrorResponse
}

func (e *HTTPError) Error() string {
	return e.Response.Error
}

// MapErrorToHTTP maps domain errors to HTTP errors. Failures never leak their detail.
func MapErrorToHTTP(err error) *HTTPError {
	switch KindOf(err) {
	case KindValidation:
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return &HTTPError{StatusCode: http.StatusBadRequest, Response: ErrorResponse{
				Error:  "validation error",
				Code:   "VALIDATION_ERROR",
				Errors: validationErr.Messages,
			}}
		}
		return &HTTPError{StatusCode: http.StatusBadRequest, Response: ErrorResponse{
			Error: err.Error(),
			Code:  "ID_MISMATCH",
		}}
	case KindConflict:
		var conflictErr *ConflictError
		errors.As(err, &conflictErr)
		return &HTTPError{StatusCode: http.StatusConflict, Response: ErrorResponse{
			Error: conflictErr.Message,
			Code:  "CONFLICT",
			Field: conflictErr.Field,
		}}
	case KindNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Response: ErrorResponse{
			Error: "account not found",
			Code:  "NOT_FOUND",
		}}
	case KindInvalidCredentials:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Response: ErrorResponse{
			Error: ErrInvalidCredentials.Error(),
			Code:  "INVALID_CREDENTIALS",
		}}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Response: ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		}}
	}
}
