package services

import (
	"errors"
	"fmt"
)

// Error type identifiers.
const (
	TypeValidation    = "VALIDATION_ERROR"
	TypeNotFound      = "NOT_FOUND"
	TypeConfiguration = "CONFIGURATION_ERROR"
	TypeTransport     = "TRANSPORT_ERROR"
	TypeProtocol      = "PROTOCOL_ERROR"
	TypeDataIntegrity = "DATA_INTEGRITY_ERROR"
	TypeInternal      = "INTERNAL_ERROR"
)

// ServiceError represents a structured service error.
type ServiceError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a validation error.
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{Type: TypeValidation, Message: message, Cause: cause}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{Type: TypeNotFound, Message: message}
}

// NewConfigurationError creates an error for a missing or incomplete badge
// service configuration. Callers treat this as an inactive state, not a
// failure to surface to users.
func NewConfigurationError(message string) *ServiceError {
	return &ServiceError{Type: TypeConfiguration, Message: message}
}

// NewTransportError creates an error for a network-level failure. Transient:
// no queue state changes, the work is retried on the next cycle.
func NewTransportError(message string, cause error) *ServiceError {
	return &ServiceError{Type: TypeTransport, Message: message, Cause: cause}
}

// NewProtocolError creates an error for a malformed or unexpected response
// from the remote service.
func NewProtocolError(message string, cause error) *ServiceError {
	return &ServiceError{Type: TypeProtocol, Message: message, Cause: cause}
}

// NewDataIntegrityError creates an error for missing foreign data that
// retrying cannot fix. Tasks hitting this fail terminally.
func NewDataIntegrityError(message string) *ServiceError {
	return &ServiceError{Type: TypeDataIntegrity, Message: message}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *ServiceError {
	return &ServiceError{Type: TypeInternal, Message: message, Cause: cause}
}

// IsErrorType checks if an error is a ServiceError of a specific type.
func IsErrorType(err error, errorType string) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Type == errorType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return IsErrorType(err, TypeNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return IsErrorType(err, TypeValidation)
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return IsErrorType(err, TypeConfiguration)
}

// IsDataIntegrityError checks if an error is a data integrity error.
func IsDataIntegrityError(err error) bool {
	return IsErrorType(err, TypeDataIntegrity)
}
