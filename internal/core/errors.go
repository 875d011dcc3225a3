package core

import (
	"errors"
	"fmt"
)

// Family sentinels. Typed errors below wrap one of these so callers can match
// a whole family with errors.Is without naming every concrete type.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// DmoNotFoundError indicates no DMO exists with the given ID.
type DmoNotFoundError struct {
	ID int64
}

func (e *DmoNotFoundError) Error() string { return fmt.Sprintf("dmo not found: %d", e.ID) }
func (e *DmoNotFoundError) Unwrap() error { return ErrNotFound }

// ActivityNotFoundError indicates no Activity exists with the given ID.
type ActivityNotFoundError struct {
	ID int64
}

func (e *ActivityNotFoundError) Error() string { return fmt.Sprintf("activity not found: %d", e.ID) }
func (e *ActivityNotFoundError) Unwrap() error { return ErrNotFound }

// CompletionNotFoundError indicates no completion record exists for the given
// DMO and date. Backends return a nil record for an absent completion; this
// error exists for callers that require the record to be present.
type CompletionNotFoundError struct {
	DmoID int64
	Date  Date
}

func (e *CompletionNotFoundError) Error() string {
	return fmt.Sprintf("completion not found for dmo %d on %s", e.DmoID, e.Date)
}
func (e *CompletionNotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateNameError indicates a name-uniqueness violation at create or
// update time.
type DuplicateNameError struct {
	Entity string
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name: %q", e.Entity, e.Name)
}
func (e *DuplicateNameError) Unwrap() error { return ErrValidation }

// InvalidRangeError indicates a date range with start after end.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s is after end %s", e.Start, e.End)
}
func (e *InvalidRangeError) Unwrap() error { return ErrValidation }

// StorageError wraps an unexpected backend-level failure, carrying the
// operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage operation failed: %s", e.Op)
	}
	return fmt.Sprintf("storage operation failed: %s: %v", e.Op, e.Err)
}
func (e *StorageError) Unwrap() error { return e.Err }

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err belongs to the validation family.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
