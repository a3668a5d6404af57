package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyReviewed    = errors.New("review already submitted with a different decision")
	ErrDataAccess         = errors.New("data access failed")
)

// DataAccessError wraps a store failure with the operation that hit it.
// It matches ErrDataAccess and unwraps to the underlying cause.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

func dataAccess(op string, err error) error {
	return &DataAccessError{Op: op, Err: err}
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
