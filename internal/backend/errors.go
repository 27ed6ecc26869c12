package backend

import (
	"errors"
	"fmt"
)

// ConversionError represents a fatal error while lowering precisions, types or
// variables to a backend.
//
// Conversion errors include:
//   - Unsupported kind: the backend's table has no definition for a precision or type kind
//   - Missing parameter: a decorator was called without a required argument
//   - Already bound: a value was converted by another backend family
//   - Unknown backend: no backend registered under the requested name
//
// None of these are recoverable; they abort the generation run.
type ConversionError struct {
	// Code identifies the error category.
	Code ConversionErrorCode

	// Message is a human-readable description.
	Message string

	// Family is the backend family performing the conversion.
	Family string

	// Kind names the offending precision/type kind or parameter.
	Kind string

	// Err is the underlying cause, if any.
	Err error
}

// ConversionErrorCode categorizes conversion errors.
type ConversionErrorCode string

const (
	// ErrCodeUnsupportedPrecisionKind indicates a precision kind with no definition.
	ErrCodeUnsupportedPrecisionKind ConversionErrorCode = "UNSUPPORTED_PRECISION_KIND"

	// ErrCodeUnsupportedTypeKind indicates a composite type kind with no definition.
	ErrCodeUnsupportedTypeKind ConversionErrorCode = "UNSUPPORTED_TYPE_KIND"

	// ErrCodeMissingParameter indicates a required decorator argument was omitted.
	ErrCodeMissingParameter ConversionErrorCode = "MISSING_REQUIRED_PARAMETER"

	// ErrCodeAlreadyBound indicates a value already converted by another family.
	ErrCodeAlreadyBound ConversionErrorCode = "ALREADY_BOUND"

	// ErrCodeUnknownBackend indicates an unregistered backend name.
	ErrCodeUnknownBackend ConversionErrorCode = "UNKNOWN_BACKEND"
)

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Family != "" {
		return fmt.Sprintf("%s: %s (family=%s)", e.Code, e.Message, e.Family)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsUnsupportedKind returns true for unsupported precision or type kinds.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedKind(err error) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeUnsupportedPrecisionKind || ce.Code == ErrCodeUnsupportedTypeKind
	}
	return false
}

// IsMissingParameter returns true if a decorator was called without a required argument.
func IsMissingParameter(err error) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeMissingParameter
	}
	return false
}

// CodeOf returns the conversion error code of err, or "" if err is not a ConversionError.
func CodeOf(err error) ConversionErrorCode {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// kindNil names the kind of an untyped value in conversion errors.
const kindNil = "nil"

func newUnsupportedPrecisionKind(family, kind string) *ConversionError {
	return &ConversionError{
		Code:    ErrCodeUnsupportedPrecisionKind,
		Message: fmt.Sprintf("cannot convert precision type to %s: %s", family, kind),
		Family:  family,
		Kind:    kind,
	}
}

func newUnsupportedTypeKind(family, kind string) *ConversionError {
	return &ConversionError{
		Code:    ErrCodeUnsupportedTypeKind,
		Message: fmt.Sprintf("cannot convert type: %s", kind),
		Family:  family,
		Kind:    kind,
	}
}

func newMissingParameter(family, param, decorator string) *ConversionError {
	return &ConversionError{
		Code:    ErrCodeMissingParameter,
		Message: fmt.Sprintf("%s must be provided when creating a %s", param, decorator),
		Family:  family,
		Kind:    param,
	}
}

func newAlreadyBound(family string, err error) *ConversionError {
	return &ConversionError{
		Code:    ErrCodeAlreadyBound,
		Message: err.Error(),
		Family:  family,
		Err:     err,
	}
}
