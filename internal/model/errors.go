package model

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures at the core boundary
type ErrorCode string

const (
	CodeIndexUnavailable           ErrorCode = "INDEX_UNAVAILABLE"
	CodeEmbeddingFailure           ErrorCode = "EMBEDDING_FAILURE"
	CodeReasoningUnavailable       ErrorCode = "REASONING_UNAVAILABLE"
	CodeInvalidCitation            ErrorCode = "INVALID_CITATION"
	CodeOnlineExpansionUnavailable ErrorCode = "ONLINE_EXPANSION_UNAVAILABLE"
	CodeInvalidRequest             ErrorCode = "INVALID_REQUEST"
	CodeSessionStoreFailure        ErrorCode = "SESSION_STORE_FAILURE"
	CodeInternal                   ErrorCode = "INTERNAL"
)

// Sentinels for errors.Is; they match any *Error carrying the same code.
var (
	ErrIndexUnavailable           = &Error{Code: CodeIndexUnavailable}
	ErrEmbeddingFailure           = &Error{Code: CodeEmbeddingFailure}
	ErrReasoningUnavailable       = &Error{Code: CodeReasoningUnavailable}
	ErrInvalidCitation            = &Error{Code: CodeInvalidCitation}
	ErrOnlineExpansionUnavailable = &Error{Code: CodeOnlineExpansionUnavailable}
	ErrInvalidRequest             = &Error{Code: CodeInvalidRequest}
	ErrSessionStoreFailure        = &Error{Code: CodeSessionStoreFailure}
)

// Error carries a code, the failing operation and the underlying cause
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

// NewError builds a coded error
func NewError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// Errorf builds a coded error from a format string
func Errorf(code ErrorCode, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Op == "" && t.Err == nil
}

// CodeOf extracts the outermost error code, CodeInternal when none is present
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
