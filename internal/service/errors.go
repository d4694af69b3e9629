package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrFormNotFound is returned when a submission names an unknown form.
	ErrFormNotFound = errors.New("form not found")

	// ErrItemNotFound is returned when a purchase names an unknown catalog item.
	ErrItemNotFound = errors.New("catalog item not found")
)

// ValidationError reports one invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PartialWriteError reports a dependent write that failed after its primary
// write succeeded. The primary record exists; the dependent one does not.
type PartialWriteError struct {
	Primary   string // collection written successfully
	Secondary string // collection whose write failed
	Key       string // record left without a dependent; empty for batches
	Err       error
}

func (e *PartialWriteError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("partial write: %s written but %s failed: %v", e.Primary, e.Secondary, e.Err)
	}
	return fmt.Sprintf("partial write: %s/%s written but %s failed: %v", e.Primary, e.Key, e.Secondary, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
