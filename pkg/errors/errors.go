// Package errors maps domain and storage failures onto stable codes for logs,
// spans and outbox bookkeeping.
package errors

import (
	"context"
	"errors"
	"fmt"

	"dddkit/domain/shared"
)

// ErrorCode stable, machine readable failure class
type ErrorCode string

const (
	CodeInternal            ErrorCode = "INTERNAL"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeConflict            ErrorCode = "CONFLICT"
	CodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	CodeRuleViolation       ErrorCode = "RULE_VIOLATION"
	CodeCancelled           ErrorCode = "CANCELLED"
	CodeStorageFailure      ErrorCode = "STORAGE_FAILURE"
	CodePublishFailure      ErrorCode = "PUBLISH_FAILURE"
)

// AppError is an error tagged with a code
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// StorageFailure tags an adapter error that is not otherwise classified
func StorageFailure(err error, message string) *AppError {
	return Wrap(err, CodeStorageFailure, message)
}

// Is reports whether err carries code
func Is(err error, code ErrorCode) bool {
	return Classify(err) == code
}

// AsAppError returns err as an *AppError, classifying it when it is not one already
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, Classify(err), err.Error())
}

// Classify returns the code for err. Explicit AppError codes win, then the
// domain sentinels, then context cancellation.
func Classify(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	case errors.Is(err, shared.ErrRuleViolation):
		return CodeRuleViolation
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return CodeConcurrencyConflict
	case errors.Is(err, shared.ErrConflict):
		return CodeConflict
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrEnumerationNotFound):
		return CodeNotFound
	case errors.Is(err, shared.ErrInvalidInput):
		return CodeInvalidInput
	}
	return CodeInternal
}
