package message

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTuple is returned when a tuple value has the wrong top-level
	// kind or the wrong number of slots.
	ErrMalformedTuple = errors.New("message: malformed tuple")
	// ErrSlotType is returned when a tuple slot holds a value of the wrong kind.
	ErrSlotType = errors.New("message: unexpected slot type")
	// ErrIDAlreadySet is returned when a different correlation id was already assigned.
	ErrIDAlreadySet = errors.New("message: correlation id already set")
	// ErrInvalidID is returned when asked to assign the unset sentinel.
	ErrInvalidID = errors.New("message: invalid correlation id")
)

// IDConflictError reports an attempt to overwrite an assigned correlation id.
type IDConflictError struct {
	Current   int64
	Requested int64
}

func (e *IDConflictError) Error() string {
	return fmt.Sprintf("%s: have %d, got %d", ErrIDAlreadySet, e.Current, e.Requested)
}

func (e *IDConflictError) Unwrap() error {
	return ErrIDAlreadySet
}

// RemoteError is the failure carried by an Exception message.
type RemoteError struct {
	ID   int64
	Text string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (id %d): %s", e.ID, e.Text)
}
