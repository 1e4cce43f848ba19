package domain

import (
	"errors"
	"fmt"
)

// Domain errors are expected outcomes of normal operation. Callers
// discriminate them with errors.Is to produce distinct feedback.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrStockNotFound     = errors.New("stock not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAgentNotFound     = errors.New("agent not found")
	ErrDuplicateRequest  = errors.New("duplicate request")
)

// StorageError marks an infrastructure-level failure. It is transient and
// retryable, and must never be collapsed into a domain error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a storage failure, unless it already is one.
func NewStorageError(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is an infrastructure failure.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
