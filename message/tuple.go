package message

import (
	"fmt"

	"dist-rpc/ivalue"
)

// Slot order of the tuple form. Fixed and unversioned.
const (
	slotPayload = iota
	slotBlobs
	slotType
	slotID
	tupleSize // must be last
)

// ToTupleValue converts m into the 4-slot tuple {payload, blobs, type, id}.
// The payload is copied into a string value byte for byte; blob handles are wrapped,
// not cloned.
func (m *Message) ToTupleValue() ivalue.Value {
	return ivalue.Tuple(
		ivalue.StringBytes(m.payload),
		ivalue.BlobList(m.blobs),
		ivalue.Int(int64(m.typ)),
		ivalue.Int(m.ID()),
	)
}

// FromTupleValue is the inverse of ToTupleValue. Any shape or slot-kind mismatch
// aborts the conversion: the error wraps ErrMalformedTuple or ErrSlotType and no
// Message is returned. Such a failure means the peers disagree on the format and
// must not be retried.
//
// The type slot is not range checked; an unknown tag is kept as is.
func FromTupleValue(v ivalue.Value) (Message, error) {
	if !v.IsTuple() {
		return Message{}, fmt.Errorf("%w: expected tuple, got %s", ErrMalformedTuple, v.Kind())
	}
	values, err := v.Elements()
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedTuple, err)
	}
	if len(values) != tupleSize {
		return Message{}, fmt.Errorf("%w: expected %d elements, got %d", ErrMalformedTuple, tupleSize, len(values))
	}

	payloadValue := values[slotPayload]
	if !payloadValue.IsString() {
		return Message{}, fmt.Errorf("%w: expected payload to be String, got %s", ErrSlotType, payloadValue.Kind())
	}
	payloadString, _ := payloadValue.ToStringRef()

	blobsValue := values[slotBlobs]
	if !blobsValue.IsList() {
		return Message{}, fmt.Errorf("%w: expected blobs to be List, got %s", ErrSlotType, blobsValue.Kind())
	}
	blobs, err := blobsValue.ToBlobVector()
	if err != nil {
		return Message{}, fmt.Errorf("%w: blobs: %w", ErrSlotType, err)
	}

	typeValue := values[slotType]
	if !typeValue.IsInt() {
		return Message{}, fmt.Errorf("%w: expected type to be Int, got %s", ErrSlotType, typeValue.Kind())
	}
	rawType, _ := typeValue.ToInt()

	idValue := values[slotID]
	if !idValue.IsInt() {
		return Message{}, fmt.Errorf("%w: expected id to be Int, got %s", ErrSlotType, idValue.Kind())
	}
	id, _ := idValue.ToInt()

	return NewWithID([]byte(payloadString), blobs, MessageType(rawType), id), nil
}
