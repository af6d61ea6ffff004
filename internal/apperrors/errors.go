// Package apperrors defines the error taxonomy shared by the form pipeline
// and its transports.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind represents a category of failure
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidDocument
	KindExternalAPIFailure
	KindMalformedModelOutput
	KindNotFound
	KindInvalidRequest
	KindTooLarge
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindInvalidDocument:
		return "INVALID_DOCUMENT"
	case KindExternalAPIFailure:
		return "EXTERNAL_API_FAILURE"
	case KindMalformedModelOutput:
		return "MALFORMED_MODEL_OUTPUT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidRequest:
		return "INVALID_REQUEST"
	case KindTooLarge:
		return "TOO_LARGE"
	default:
		return "INTERNAL"
	}
}

// Error is a categorized error with an optional cause
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k})
// works as a kind test
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// New creates a new Error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap wraps err with a kind and message
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

// Newf creates a new Error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
