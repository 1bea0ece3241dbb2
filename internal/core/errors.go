package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationCode identifies which input rule a submission broke.
type ValidationCode string

const (
	// CodeEmptySelection means no model was selected.
	CodeEmptySelection ValidationCode = "empty_selection"
	// CodeTooManySelections means more than MaxModels models were selected.
	CodeTooManySelections ValidationCode = "too_many_selections"
	// CodeEmptyPrompt means the prompt was empty after trimming.
	CodeEmptyPrompt ValidationCode = "empty_prompt"
)

// Sentinel validation errors, comparable with errors.Is.
var (
	ErrEmptySelection    = &ValidationError{Code: CodeEmptySelection, Message: "Please select at least one model"}
	ErrTooManySelections = &ValidationError{Code: CodeTooManySelections, Message: fmt.Sprintf("Please select no more than %d models", MaxModels)}
	ErrEmptyPrompt       = &ValidationError{Code: CodeEmptyPrompt, Message: "Please enter a prompt"}
)

// ValidationError is a local input failure detected before any network activity.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches validation errors by code.
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// TransportError is a failure below the application protocol: the request
// could not be sent, the body could not be read, or it was not a JSON object.
type TransportError struct {
	Op  string
	Err error
}

// NewTransportError wraps err with the failing operation.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport: " + e.Op
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

// Unwrap implements the error unwrapping interface
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ErrorType classifies errors produced by the frontend server.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeBackendUnavailable indicates the model backend could not be reached (503)
	ErrorTypeBackendUnavailable ErrorType = "backend_unavailable_error"
	// ErrorTypeBackendResponse indicates the backend replied with something unusable (502)
	ErrorTypeBackendResponse ErrorType = "backend_response_error"
)

// ProxyError is returned by the frontend server's chat proxy.
type ProxyError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	// Original error for debugging (not exposed to clients)
	Err error
}

// Error implements the error interface
func (e *ProxyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ProxyError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *ProxyError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeBackendUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeBackendResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON renders the error in the flat shape the controller understands as a global error.
func (e *ProxyError) ToJSON() map[string]string {
	return map[string]string{"error": e.Message}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *ProxyError {
	return &ProxyError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewBackendUnavailableError creates a new backend connection error (503)
func NewBackendUnavailableError(err error) *ProxyError {
	msg := "Backend connection error"
	if err != nil {
		msg += ": " + err.Error()
	}
	return &ProxyError{
		Type:       ErrorTypeBackendUnavailable,
		Message:    msg,
		StatusCode: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewBackendResponseError creates a new invalid backend response error (502)
func NewBackendResponseError(err error) *ProxyError {
	return &ProxyError{
		Type:       ErrorTypeBackendResponse,
		Message:    "Invalid backend response",
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}
