// Package errors defines the typed errors returned by vegaorm
package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes an Error
type ErrorType string

const (
	ErrTypeInvalidField          ErrorType = "invalid_field"
	ErrTypeInvalidFieldValue     ErrorType = "invalid_field_value"
	ErrTypeValueNotInitialized   ErrorType = "value_not_initialized"
	ErrTypeNoConnection          ErrorType = "no_connection"
	ErrTypeFeatureNotImplemented ErrorType = "feature_not_implemented"
	ErrTypeUnsupportedNativeType ErrorType = "unsupported_native_type"
	ErrTypeIndexOutOfRange       ErrorType = "index_out_of_range"
	ErrTypeIDAlreadyAssigned     ErrorType = "id_already_assigned"
	ErrTypeDatabase              ErrorType = "database"
	ErrTypeConfig                ErrorType = "config"
	ErrTypeInternal              ErrorType = "internal"
)

// Error is a structured error carrying its category and an optional cause
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with a formatted message
func Newf(errType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a category and message
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a category and formatted message
func Wrapf(err error, errType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType reports whether any error in err's chain is an *Error of errType
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the category of err, or ErrTypeInternal for foreign errors
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// Is is errors.Is, re-exported so callers need a single errors import
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As, re-exported so callers need a single errors import
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// InvalidField reports a field name that the model does not declare
func InvalidField(field, model string) *Error {
	return Newf(ErrTypeInvalidField, "field %q not defined in %s model", field, model)
}

// InvalidFieldValue reports a value whose type does not match the field
func InvalidFieldValue(field, want, got string) *Error {
	return Newf(
		ErrTypeInvalidFieldValue,
		"field %q expected a value of type %s, but found value of type %s instead",
		field, want, got,
	)
}

// ValueNotInitialized reports a declared field without an assigned value
func ValueNotInitialized(field string) *Error {
	return Newf(ErrTypeValueNotInitialized, "field %q was not initialized", field)
}

// NoConnection reports that no pooled connection could be acquired
func NoConnection(cause error) *Error {
	return Wrap(cause, ErrTypeNoConnection, "no database connection available")
}

// FeatureNotImplemented reports an operation the dialect cannot perform
func FeatureNotImplemented(feature string) *Error {
	return Newf(ErrTypeFeatureNotImplemented, "%s is not implemented", feature)
}

// UnsupportedNativeType reports a native type with no SQL mapping
func UnsupportedNativeType(nativeType, dialect string) *Error {
	return Newf(ErrTypeUnsupportedNativeType, "native type %q has no %s mapping", nativeType, dialect)
}

// IndexOutOfRange reports an access past the end of a result set
func IndexOutOfRange(index, length int) *Error {
	return Newf(ErrTypeIndexOutOfRange, "index %d out of range for %d results", index, length)
}
