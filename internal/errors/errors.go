package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the caller-facing taxonomy. The outer
// request layer maps kinds onto HTTP status classes via HTTPStatus.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindPermission     Kind = "permission"
	KindImmutableField Kind = "immutable_field"
)

// Error is a classified domain error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

func ImmutableField(format string, args ...any) *Error {
	return &Error{Kind: KindImmutableField, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err carries no classification.
func KindOf(err error) Kind {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

func IsValidation(err error) bool     { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool       { return KindOf(err) == KindNotFound }
func IsPermission(err error) bool     { return KindOf(err) == KindPermission }
func IsImmutableField(err error) bool { return KindOf(err) == KindImmutableField }

// HTTPStatus maps a classified error onto the status class the outer
// request layer should answer with. Unclassified errors are 500s.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindImmutableField:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
