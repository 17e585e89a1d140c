package dispatch

import "errors"

var (
	// ErrNotRequest is returned when a handler is registered for, or asked to
	// handle, a type outside the request set.
	ErrNotRequest = errors.New("dispatch: not a request type")
	// ErrUnroutable is returned for messages that are neither requests nor responses.
	ErrUnroutable = errors.New("dispatch: message is neither request nor response")
	// ErrNoPending is returned when a response matches no outstanding request.
	ErrNoPending = errors.New("dispatch: no pending request for response")
	// ErrDuplicateID is returned when an id is already outstanding.
	ErrDuplicateID = errors.New("dispatch: correlation id already pending")
	// ErrNoID is returned when a request without a correlation id must be tracked.
	ErrNoID = errors.New("dispatch: missing correlation id")
	// ErrNoRegistry is returned by Join and Resolve when Config.Registry is nil.
	ErrNoRegistry = errors.New("dispatch: no registry configured")
	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("dispatch: dispatcher closed")
)
