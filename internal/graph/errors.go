package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("node not found")
	// ErrInvalidProperty matches every *InvalidPropertyError.
	ErrInvalidProperty = errors.New("invalid property")
	// ErrCapacityExceeded matches every *CapacityExceededError.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// NotFoundError reports a lookup of an external id that was never registered.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidPropertyError reports a property value that cannot be read as a number.
type InvalidPropertyError struct {
	Key   string
	Value any
}

func (e *InvalidPropertyError) Error() string {
	return fmt.Sprintf("property %q: expected a number, got %T (%v)", e.Key, e.Value, e.Value)
}

func (e *InvalidPropertyError) Is(target error) bool { return target == ErrInvalidProperty }

// CapacityExceededError reports a count beyond the addressable id range.
type CapacityExceededError struct {
	What  string
	Count int64
	Limit int64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%s count %d exceeds capacity %d", e.What, e.Count, e.Limit)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }
