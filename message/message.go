// Package message defines the envelope exchanged between RPC peers.
//
// A Message bundles four things:
//
//	payload  []byte        opaque encoding of the non-blob arguments or results
//	blobs    []*blob.Blob  large buffers kept out of payload so they are never copied into it
//	type     MessageType   which RPC operation this is
//	id       int64         correlation id matching a response to its request
//
// Messages are plain values with no internal locking. Exactly one goroutine owns a
// Message at a time; ownership is handed over with Move (or by sending it on a channel
// and never touching it again).
package message

import (
	"bytes"
	"slices"

	"dist-rpc/blob"
)

// UnsetID is reported by ID until a correlation id has been assigned.
const UnsetID int64 = -1

// Message is the RPC envelope. The zero Message is an empty ScriptCall with no id.
type Message struct {
	payload []byte
	blobs   []*blob.Blob
	typ     MessageType
	id      int64
	hasID   bool // False until an id is assigned; keeps the zero value unassigned
}

// New builds a Message that takes ownership of payload and blobs. The id is unset.
func New(payload []byte, blobs []*blob.Blob, typ MessageType) Message {
	return Message{payload: payload, blobs: blobs, typ: typ}
}

// NewWithID builds a fully specified Message. Passing UnsetID leaves the id unassigned.
func NewWithID(payload []byte, blobs []*blob.Blob, typ MessageType, id int64) Message {
	return Message{payload: payload, blobs: blobs, typ: typ, id: id, hasID: id != UnsetID}
}

// Clone returns an independent copy: payload bytes are duplicated, the blob slice is
// duplicated, the blob handles themselves are shared.
func (m *Message) Clone() Message {
	return Message{
		payload: slices.Clone(m.payload),
		blobs:   slices.Clone(m.blobs),
		typ:     m.typ,
		id:      m.id,
		hasID:   m.hasID,
	}
}

// Move transfers payload and blobs to the returned Message without copying and
// resets m to the zero Message.
func (m *Message) Move() Message {
	out := *m
	*m = Message{}
	return out
}

// Swap exchanges every field of m and other.
func (m *Message) Swap(other *Message) {
	m.payload, other.payload = other.payload, m.payload
	m.blobs, other.blobs = other.blobs, m.blobs
	m.typ, other.typ = other.typ, m.typ
	m.id, other.id = other.id, m.id
	m.hasID, other.hasID = other.hasID, m.hasID
}

// CopyFrom replaces m with a copy of src. The copy is fully built before m is
// touched, so m is never left half overwritten.
func (m *Message) CopyFrom(src *Message) {
	if m == src {
		return
	}
	tmp := src.Clone()
	m.Swap(&tmp)
}

// MoveFrom replaces m with the contents of src and leaves src empty.
func (m *Message) MoveFrom(src *Message) {
	if m == src {
		return
	}
	tmp := src.Move()
	m.Swap(&tmp)
}

// Payload returns the owned payload buffer. Writes through it modify the Message.
func (m *Message) Payload() []byte { return m.payload }

// PayloadReader returns a read-only view over the payload.
func (m *Message) PayloadReader() *bytes.Reader { return bytes.NewReader(m.payload) }

// Blobs returns the owned blob slice. Writes through it modify the Message.
func (m *Message) Blobs() []*blob.Blob { return m.blobs }

// TakePayload extracts the payload without copying and leaves m's payload empty.
// Only the current owner of m may call it, and only when nothing else will read
// the payload afterwards.
func (m *Message) TakePayload() []byte {
	p := m.payload
	m.payload = nil
	return p
}

// TakeBlobs extracts the blob slice without copying and leaves m's blobs empty.
// Same ownership rule as TakePayload.
func (m *Message) TakeBlobs() []*blob.Blob {
	b := m.blobs
	m.blobs = nil
	return b
}

func (m *Message) Type() MessageType { return m.typ }

func (m *Message) IsRequest() bool { return m.typ.IsRequest() }

func (m *Message) IsResponse() bool { return m.typ.IsResponse() }

// ID returns the correlation id, or UnsetID.
func (m *Message) ID() int64 {
	if !m.hasID {
		return UnsetID
	}
	return m.id
}

// HasID reports whether a correlation id has been assigned.
func (m *Message) HasID() bool { return m.hasID }

// SetID assigns the correlation id. An id is assigned once: re-assigning a different
// id would desynchronize request/response matching and returns ErrIDAlreadySet.
// Setting the id it already has is a no-op.
func (m *Message) SetID(id int64) error {
	if id == UnsetID {
		return ErrInvalidID
	}
	if m.hasID && m.id != id {
		return &IDConflictError{Current: m.id, Requested: id}
	}
	m.id = id
	m.hasID = true
	return nil
}

// Equal reports whether both messages carry the same payload bytes, the same blobs
// (same handle or same content), type and id.
func (m *Message) Equal(other *Message) bool {
	if m.typ != other.typ || m.ID() != other.ID() {
		return false
	}
	if !bytes.Equal(m.payload, other.payload) {
		return false
	}
	return slices.EqualFunc(m.blobs, other.blobs, func(a, b *blob.Blob) bool {
		return a.Equal(b)
	})
}
