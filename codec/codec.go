// Package codec turns messages into bytes and back.
//
// Both codecs write the four tuple slots of a message. Every decode ends in
// message.FromTupleValue, so both report the same validation errors.
package codec

import (
	"errors"
	"fmt"
)

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
)

func (t CodecType) String() string {
	switch t {
	case CodecTypeJSON:
		return "json"
	case CodecTypeBinary:
		return "binary"
	}
	return fmt.Sprintf("codec(%d)", byte(t))
}

var (
	// ErrUnsupportedValue is returned when Encode/Decode get a v they cannot handle.
	ErrUnsupportedValue = errors.New("codec: unsupported value")
	// ErrTruncated is returned when the input ends in the middle of a value.
	ErrTruncated = errors.New("codec: truncated input")
	// ErrUnknownKind is returned for a kind byte the binary codec does not know.
	ErrUnknownKind = errors.New("codec: unknown value kind")
	// ErrTrailingData is returned when bytes remain after a complete value.
	ErrTrailingData = errors.New("codec: trailing data")
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=JSON, 1=Binary
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return &BinaryCodec{}
}
