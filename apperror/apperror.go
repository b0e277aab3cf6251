// Package apperror defines the error taxonomy shared by the service and the
// HTTP layer.
package apperror

import (
	"errors"
	"fmt"
)

// Type categorizes an AppError.
type Type string

const (
	TypeValidation  Type = "VALIDATION"
	TypeNotFound    Type = "NOT_FOUND"
	TypeConflict    Type = "CONFLICT"
	TypeUnavailable Type = "UNAVAILABLE"
	TypeInternal    Type = "INTERNAL"
)

// AppError carries a caller-safe message plus the underlying cause, which is
// only ever logged.
type AppError struct {
	Type    Type
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidation reports missing or malformed client input.
func NewValidation(message string) error {
	return &AppError{Type: TypeValidation, Message: message}
}

// NewNotFound reports a reference to a record that does not exist.
func NewNotFound(message string) error {
	return &AppError{Type: TypeNotFound, Message: message}
}

// NewConflict reports a write that kept losing a version race.
func NewConflict(message string, err error) error {
	return &AppError{Type: TypeConflict, Message: message, Err: err}
}

// NewUnavailable reports a missing or failing upstream dependency.
func NewUnavailable(message string, err error) error {
	return &AppError{Type: TypeUnavailable, Message: message, Err: err}
}

// NewInternal reports a storage or other server-side failure.
func NewInternal(message string, err error) error {
	return &AppError{Type: TypeInternal, Message: message, Err: err}
}

// Wrap attaches message to err. An AppError keeps its type and caller-facing
// message; anything else becomes an internal error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: appErr.Message,
			Err:     fmt.Errorf("%s: %w", message, err),
		}
	}
	return &AppError{Type: TypeInternal, Message: message, Err: err}
}

// TypeOf returns the type of the first AppError in err's chain, or
// TypeInternal for anything else.
func TypeOf(err error) Type {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

func IsValidation(err error) bool { return is(err, TypeValidation) }

func IsNotFound(err error) bool { return is(err, TypeNotFound) }

func IsConflict(err error) bool { return is(err, TypeConflict) }

func IsUnavailable(err error) bool { return is(err, TypeUnavailable) }

func IsInternal(err error) bool { return is(err, TypeInternal) }

func is(err error, t Type) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}
