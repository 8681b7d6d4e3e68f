// Package clone implements the account data clone/replace engine: an
// administrative operation that deletes everything a target account owns,
// then deep-copies the source account's entity graph into the target with
// fresh identifiers and duplicated image blobs. The operation spans the
// relational store and the object store and is atomic from the caller's
// perspective, with compensating blob deletes covering the half the
// relational transaction cannot undo.
package clone

import (
	"errors"
	"fmt"
)

// ErrorCode classifies clone operation failures.
type ErrorCode int

const (
	// ErrUnknown represents an unclassified error
	ErrUnknown ErrorCode = iota
	// ErrAccountNotFound represents a missing source or target account
	ErrAccountNotFound
	// ErrSameAccount represents a request with source == target
	ErrSameAccount
	// ErrOperationInProgress represents a concurrent clone on the same account
	ErrOperationInProgress
	// ErrIntegrity represents an identifier remap miss mid-copy
	ErrIntegrity
	// ErrStorage represents an object store read or write failure
	ErrStorage
	// ErrDatabase represents a relational store failure
	ErrDatabase
	// ErrCanceled represents a caller-side cancellation observed mid-run
	ErrCanceled
)

// String returns the stable label used in logs and audit records.
func (c ErrorCode) String() string {
	switch c {
	case ErrAccountNotFound:
		return "account_not_found"
	case ErrSameAccount:
		return "same_account"
	case ErrOperationInProgress:
		return "operation_in_progress"
	case ErrIntegrity:
		return "integrity_violation"
	case ErrStorage:
		return "storage_unavailable"
	case ErrDatabase:
		return "relational_failure"
	case ErrCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error represents a clone operation error.
type Error struct {
	Code    ErrorCode // Error classification
	Message string    // Human-readable error message
	Err     error     // Original error if any
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new clone error.
func NewError(code ErrorCode, message string, err error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf extracts the clone error code, ErrUnknown for foreign errors.
func CodeOf(err error) ErrorCode {
	var cloneErr *Error
	if errors.As(err, &cloneErr) {
		return cloneErr.Code
	}
	return ErrUnknown
}

// IsErrorCode checks if an error is a clone error with the specified code.
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var cloneErr *Error
	if errors.As(err, &cloneErr) {
		return cloneErr.Code == code
	}
	return false
}

// IsAccountNotFound checks if an error reports a missing account.
func IsAccountNotFound(err error) bool {
	return IsErrorCode(err, ErrAccountNotFound)
}

// IsSameAccount checks if an error reports source == target.
func IsSameAccount(err error) bool {
	return IsErrorCode(err, ErrSameAccount)
}

// IsOperationInProgress checks if an error reports a concurrent clone.
func IsOperationInProgress(err error) bool {
	return IsErrorCode(err, ErrOperationInProgress)
}

// IsIntegrityError checks if an error reports a remap miss.
func IsIntegrityError(err error) bool {
	return IsErrorCode(err, ErrIntegrity)
}

// IsStorageError checks if an error reports an object store failure.
func IsStorageError(err error) bool {
	return IsErrorCode(err, ErrStorage)
}

// IsDatabaseError checks if an error reports a relational store failure.
func IsDatabaseError(err error) bool {
	return IsErrorCode(err, ErrDatabase)
}

// IsCanceled checks if an error reports a canceled run.
func IsCanceled(err error) bool {
	return IsErrorCode(err, ErrCanceled)
}
