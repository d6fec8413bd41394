package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every business-rule rejection unwraps to exactly one of these so
// callers can tell it apart from infrastructure failures with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
)

// Error carries a user-facing reason and the kind it belongs to.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validationf reports malformed or missing input.
func Validationf(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

// NotFoundf reports an absent record, or one the caller does not own.
func NotFoundf(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

// Authorizationf reports a caller acting outside its role or ownership.
func Authorizationf(format string, args ...any) error {
	return newError(ErrAuthorization, format, args...)
}

// Conflictf reports a request that is valid but no longer applicable.
func Conflictf(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

var (
	ErrAccountNotFound   = NotFoundf("account not found")
	ErrRequestNotFound   = NotFoundf("request not found")
	ErrStockNotFound     = NotFoundf("stock not found or not authorized")
	ErrRequestNotActive  = Conflictf("this request is no longer active")
	ErrInsufficientStock = Conflictf("insufficient stock to fulfill this request")
	ErrVersionMismatch   = Conflictf("request was modified by someone else, reload and retry")
	ErrBloodBankRequired = Authorizationf("access denied, blood bank role required")
	ErrNotRequestCreator = Authorizationf("you are not authorized to modify this request")
	ErrDuplicateAccount  = Conflictf("email already exists")
)
