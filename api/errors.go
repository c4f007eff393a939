// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for threadlayer.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeConfig
	ErrCodeUnavailable
	ErrCodeInit
	ErrCodeOutOfRange
	ErrCodeInvalidArgument
	ErrCodeInternal
	ErrCodeNotInitialized
	ErrCodeClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeConfig:
		return "config"
	case ErrCodeUnavailable:
		return "unavailable"
	case ErrCodeInit:
		return "init"
	case ErrCodeOutOfRange:
		return "out of range"
	case ErrCodeInvalidArgument:
		return "invalid argument"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeNotInitialized:
		return "not initialized"
	case ErrCodeClosed:
		return "closed"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Sentinels for errors.Is matching. Any *Error with the same Code matches.
var (
	ErrConfig          = &Error{Code: ErrCodeConfig, Message: "invalid configuration"}
	ErrUnavailable     = &Error{Code: ErrCodeUnavailable, Message: "threading layer unavailable"}
	ErrInit            = &Error{Code: ErrCodeInit, Message: "threading layer initialization failed"}
	ErrOutOfRange      = &Error{Code: ErrCodeOutOfRange, Message: "value out of range"}
	ErrInvalidArgument = &Error{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
	ErrInternal        = &Error{Code: ErrCodeInternal, Message: "internal consistency error"}
	ErrNotInitialized  = &Error{Code: ErrCodeNotInitialized, Message: "Threading layer is not initialized."}
	ErrClosed          = &Error{Code: ErrCodeClosed, Message: "threading layer is shut down"}
)

// ErrNoBackend is returned (wrapped) when no candidate backend could be loaded.
var ErrNoBackend = errors.New("no threading layer could be loaded")

// ErrConcurrentLaunch is the panic value raised by backends that cannot run
// two parallel sections at once (including nested launches from a kernel).
var ErrConcurrentLaunch = errors.New("concurrent access detected, the workqueue threading layer does not support concurrent or nested parallel launches")

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Context) != 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Errorf creates a structured error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap records cause as the underlying error.
func (e *Error) Wrap(cause error) *Error {
	e.Err = cause
	return e
}

// CodeOf extracts the ErrorCode from err, or ErrCodeOK if err carries none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeOK
}
