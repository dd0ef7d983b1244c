package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType categorizes failures surfaced to presentation code.
type ErrorType string

const (
	// ErrNetworkFailure indicates a collaborator could not be reached.
	ErrNetworkFailure ErrorType = "NETWORK_FAILURE"

	// ErrAuthenticationRequired indicates the operation needs a signed-in user.
	ErrAuthenticationRequired ErrorType = "AUTHENTICATION_REQUIRED"

	// ErrValidationFailure indicates invalid input or an unresolved merge.
	ErrValidationFailure ErrorType = "VALIDATION_FAILURE"

	// ErrNotFound indicates an operation on a removed product or order.
	ErrNotFound ErrorType = "NOT_FOUND"

	// ErrStorageFailure indicates a persistence write failed.
	ErrStorageFailure ErrorType = "STORAGE_FAILURE"
)

// Retryable reports whether an error of this type may succeed on retry.
func (t ErrorType) Retryable() bool {
	return t == ErrNetworkFailure || t == ErrStorageFailure
}

// ErrorState is the typed error value attached to a sub-state.
type ErrorState struct {
	Message   string    `json:"message"`
	Type      ErrorType `json:"type"`
	Retryable bool      `json:"retryable"`

	// Field names the input a validation error belongs to, if any.
	Field string `json:"field,omitempty"`
}

// Failure is the error type returned by collaborators and domain checks.
//
// Failure includes structured fields so that any error crossing into the
// reducer can be turned into an ErrorState without string matching.
type Failure struct {
	// Type identifies the error category.
	Type ErrorType

	// Message is a human-readable description.
	Message string

	// Field names the offending input for validation failures.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Type, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// State converts the failure into an ErrorState.
func (f *Failure) State() ErrorState {
	return ErrorState{
		Message:   f.Message,
		Type:      f.Type,
		Retryable: f.Type.Retryable(),
		Field:     f.Field,
	}
}

// NetworkFailure creates a retryable transport failure.
func NetworkFailure(message string, err error) *Failure {
	return &Failure{Type: ErrNetworkFailure, Message: message, Err: err}
}

// AuthenticationRequired creates a failure that routes the user to login.
func AuthenticationRequired(message string) *Failure {
	return &Failure{Type: ErrAuthenticationRequired, Message: message}
}

// ValidationFailure creates an inline validation failure for a field.
func ValidationFailure(field, message string) *Failure {
	return &Failure{Type: ErrValidationFailure, Field: field, Message: message}
}

// NotFoundFailure creates a failure for a missing product or order.
func NotFoundFailure(message string) *Failure {
	return &Failure{Type: ErrNotFound, Message: message}
}

// StorageFailure creates a failure for a persistence write.
func StorageFailure(message string, err error) *Failure {
	return &Failure{Type: ErrStorageFailure, Message: message, Err: err}
}

// Classify converts any error into an ErrorState.
// Uses errors.As to handle wrapped Failures. Errors that carry no type are
// treated as network failures, since they come from collaborator I/O.
func Classify(err error) ErrorState {
	var f *Failure
	if errors.As(err, &f) {
		return f.State()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorState{Message: "request timed out", Type: ErrNetworkFailure, Retryable: true}
	}
	return ErrorState{Message: err.Error(), Type: ErrNetworkFailure, Retryable: true}
}

// IsType reports whether err is a Failure of the given type.
func IsType(err error, t ErrorType) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Type == t
	}
	return false
}
