package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrRateUnavailable = errors.New("no rate available")
	ErrDispatchFailed  = errors.New("settlement dispatch failed")
	ErrStoreError      = errors.New("store error")

	// ErrQuoteExpired is a validation error: the quote or lock window is over.
	ErrQuoteExpired = fmt.Errorf("%w: quote expired", ErrValidation)
	// ErrLockConsumed marks a lock, and the quote behind it, as already used.
	ErrLockConsumed = fmt.Errorf("%w: lock already consumed", ErrQuoteExpired)
)

type ErrorCode string

const (
	CodeValidation      ErrorCode = "VALIDATION"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeDuplicate       ErrorCode = "DUPLICATE"
	CodeRateUnavailable ErrorCode = "RATE_UNAVAILABLE"
	CodeDispatchFailed  ErrorCode = "DISPATCH_FAILED"
	CodeStoreError      ErrorCode = "STORE_ERROR"
	CodeInternal        ErrorCode = "INTERNAL"
)

// Code classifies err into the settlement error taxonomy.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicate):
		return CodeDuplicate
	case errors.Is(err, ErrRateUnavailable):
		return CodeRateUnavailable
	case errors.Is(err, ErrDispatchFailed):
		return CodeDispatchFailed
	case errors.Is(err, ErrStoreError):
		return CodeStoreError
	default:
		return CodeInternal
	}
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
