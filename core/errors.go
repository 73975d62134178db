package core

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrorKind is the machine-readable category of an error returned to API callers.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindPermission          ErrorKind = "permission_denied"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidState        ErrorKind = "invalid_state"
	KindInsufficientFunds   ErrorKind = "insufficient_funds"
	KindNotEnrolled         ErrorKind = "not_enrolled"
	KindDuplicateSubmission ErrorKind = "duplicate_submission"
	KindInternal            ErrorKind = "internal_error"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// Error is a domain error of a given kind. Values are comparable by identity, so packages declare
// them once (`var ErrX = core.NewNotFoundError(...)`) and match them with errors.Is.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (err *Error) Error() string {
	return err.Message
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func NewPermissionError(msg string) error          { return newError(KindPermission, msg) }
func NewNotFoundError(msg string) error            { return newError(KindNotFound, msg) }
func NewInvalidStateError(msg string) error        { return newError(KindInvalidState, msg) }
func NewInsufficientFundsError(msg string) error   { return newError(KindInsufficientFunds, msg) }
func NewNotEnrolledError(msg string) error         { return newError(KindNotEnrolled, msg) }
func NewDuplicateSubmissionError(msg string) error { return newError(KindDuplicateSubmission, msg) }

// ErrPermissionDenied is the generic permission failure.
var ErrPermissionDenied = NewPermissionError("permission denied")

// KindOf returns the ErrorKind found in err's chain, KindInternal when none.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}
	var fErrs validator.ValidationErrors
	if errors.As(err, &fErrs) {
		return KindValidation
	}
	return KindInternal
}

// IsKind reports whether err is of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
