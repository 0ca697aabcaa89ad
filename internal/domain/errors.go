package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies a failure for transport mapping.
type ErrorCode string

const (
	CodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeResourceExhausted  ErrorCode = "RESOURCE_EXHAUSTED"
	CodeFailedPrecondition ErrorCode = "FAILED_PRECONDITION"
	CodeInternal           ErrorCode = "INTERNAL"
)

// DomainError represents a categorized failure surfaced to the client.
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface.
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError.
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, Cause: cause}
}

func NewUnauthenticatedError(message string) *DomainError {
	return NewError(CodeUnauthenticated, message, nil)
}

func NewPermissionDeniedError(message string) *DomainError {
	return NewError(CodePermissionDenied, message, nil)
}

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidArgumentError(message string) *DomainError {
	return NewError(CodeInvalidArgument, message, nil)
}

func NewResourceExhaustedError(message string) *DomainError {
	return NewError(CodeResourceExhausted, message, nil)
}

func NewFailedPreconditionError(message string) *DomainError {
	return NewError(CodeFailedPrecondition, message, nil)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}
