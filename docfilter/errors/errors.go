package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode string

const (
	ErrMalformedAST      ErrorCode = "malformed_ast"
	ErrUnknownOperator   ErrorCode = "unknown_operator"
	ErrUnknownTypeTag    ErrorCode = "unknown_type_tag"
	ErrInvalidIdentifier ErrorCode = "invalid_identifier"
	ErrDecode            ErrorCode = "decode"
	ErrBackend           ErrorCode = "backend"
	ErrNotFound          ErrorCode = "not_found"
	ErrConfig            ErrorCode = "config"
	ErrCursor            ErrorCode = "cursor"
)

type Error struct {
	Code  ErrorCode
	Msg   string
	Field string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Code, e.Msg)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, msg string) *Error { return &Error{Code: code, Msg: msg} }
func Wrap(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

func MalformedAST(format string, args ...any) *Error {
	return &Error{Code: ErrMalformedAST, Msg: fmt.Sprintf(format, args...)}
}

func UnknownOperator(op string) *Error {
	return &Error{Code: ErrUnknownOperator, Msg: fmt.Sprintf("unknown operator %q", op)}
}

func UnknownTypeTag(tag string) *Error {
	return &Error{Code: ErrUnknownTypeTag, Msg: fmt.Sprintf("unknown type tag %q", tag)}
}

func InvalidIdentifier(raw string, cause error) *Error {
	return &Error{Code: ErrInvalidIdentifier, Msg: fmt.Sprintf("invalid identifier %q", raw), Cause: cause}
}

// WithField returns a copy of e annotated with the offending field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}
