package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorType categorizes store and feed failures
type ErrorType string

const (
	// ErrorTypeValidation is raised locally, before any network call, or by the store on 400/422
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAuthorization means the caller is not allowed to touch the item (401/403)
	ErrorTypeAuthorization ErrorType = "authorization"
	// ErrorTypeConnectivity covers transport failures, timeouts and 5xx responses
	ErrorTypeConnectivity ErrorType = "connectivity"
	// ErrorTypeNotFound means the mutation target no longer exists
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConflict is returned for uniqueness violations (duplicate follow, email taken)
	ErrorTypeConflict ErrorType = "conflict"

	ErrorTypeUnknown ErrorType = "unknown"
)

// StoreError represents a structured error with context
type StoreError struct {
	Type       ErrorType
	Message    string
	Field      string
	Cause      error
	Suggestion string
	StatusCode int
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a helpful suggestion to the error
func (e *StoreError) WithSuggestion(suggestion string) *StoreError {
	e.Suggestion = suggestion
	return e
}

// HasSuggestion returns true if the error has a suggestion
func (e *StoreError) HasSuggestion() bool {
	return e.Suggestion != ""
}

// New creates a new store error
func New(errorType ErrorType, message string, cause error) *StoreError {
	return &StoreError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError creates a validation error for a field
func ValidationError(field, reason string) *StoreError {
	err := New(ErrorTypeValidation, reason, nil)
	err.Field = field
	return err
}

// AuthorizationError creates an authorization error
func AuthorizationError(message string) *StoreError {
	err := New(ErrorTypeAuthorization, message, nil)
	err.Suggestion = "Only the owner of an item can change or delete it. Run 'cub auth login' if your session expired."
	return err
}

// ConnectivityError wraps a transport failure
func ConnectivityError(message string, cause error) *StoreError {
	err := New(ErrorTypeConnectivity, message, cause)
	err.Suggestion = "Check your connection and that the server is running, then try again."
	return err
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, identifier string) *StoreError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", resourceType, identifier), nil)
}

// ConflictError creates a conflict error
func ConflictError(message string) *StoreError {
	return New(ErrorTypeConflict, message, nil)
}

// FromStatus maps an HTTP status returned by a remote store onto the taxonomy.
func FromStatus(status int, message string) *StoreError {
	if message == "" {
		message = http.StatusText(status)
	}
	var err *StoreError
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		err = New(ErrorTypeValidation, message, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err = AuthorizationError(message)
	case status == http.StatusNotFound:
		err = New(ErrorTypeNotFound, message, nil)
	case status == http.StatusConflict:
		err = ConflictError(message)
	case status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		err = ConnectivityError(message, nil)
	default:
		err = New(ErrorTypeUnknown, message, nil)
	}
	err.StatusCode = status
	return err
}

// TypeOf returns the taxonomy type of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Type
	}
	return ErrorTypeUnknown
}

func IsValidation(err error) bool    { return TypeOf(err) == ErrorTypeValidation }
func IsAuthorization(err error) bool { return TypeOf(err) == ErrorTypeAuthorization }
func IsConnectivity(err error) bool  { return TypeOf(err) == ErrorTypeConnectivity }
func IsNotFound(err error) bool      { return TypeOf(err) == ErrorTypeNotFound }
func IsConflict(err error) bool      { return TypeOf(err) == ErrorTypeConflict }

// CategorizeError converts a standard error into a StoreError
func CategorizeError(err error) *StoreError {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ConnectivityError("Request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ConnectivityError("Could not reach the server", err)
	}

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused"):
		return ConnectivityError("Could not connect to server. Make sure it's running.", err)
	case strings.Contains(errMsg, "timeout"):
		return ConnectivityError("Request timed out", err)
	case strings.Contains(errMsg, "EOF"):
		return ConnectivityError("Connection closed unexpectedly", err)
	default:
		return New(ErrorTypeUnknown, errMsg, err)
	}
}

// FormatError returns the dismissible, user-visible message for err
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	se := CategorizeError(err)
	var sb strings.Builder

	sb.WriteString("Error")
	if se.Type != ErrorTypeUnknown {
		sb.WriteString(" (")
		sb.WriteString(string(se.Type))
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(se.Error())
	sb.WriteString("\n")

	if se.HasSuggestion() {
		sb.WriteString("Suggestion: ")
		sb.WriteString(se.Suggestion)
		sb.WriteString("\n")
	}

	return sb.String()
}
