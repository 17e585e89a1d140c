package codec

import (
	"encoding/json"
	"fmt"

	"dist-rpc/blob"
	"dist-rpc/ivalue"
	"dist-rpc/message"
)

// JSONCodec uses Go's standard library encoding/json for serialization.
// Pros: human-readable, cross-language, easy to debug.
// Cons: payload and blob bytes are base64-encoded, so it is the slower and larger codec.
//
// Only *message.Message is supported.
type JSONCodec struct{}

type jsonBlob struct {
	DType blob.DType `json:"dtype"`
	Shape []int64    `json:"shape"`
	Data  []byte     `json:"data"`
}

// jsonMessage mirrors the four tuple slots.
type jsonMessage struct {
	Payload []byte     `json:"payload"`
	Blobs   []jsonBlob `json:"blobs"`
	Type    int64      `json:"type"`
	ID      int64      `json:"id"`
}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	msg, ok := v.(*message.Message)
	if !ok {
		return nil, fmt.Errorf("%w: JSONCodec cannot encode %T", ErrUnsupportedValue, v)
	}

	wire := jsonMessage{
		Payload: msg.Payload(),
		Blobs:   make([]jsonBlob, 0, len(msg.Blobs())),
		Type:    int64(msg.Type()),
		ID:      msg.ID(),
	}
	for _, b := range msg.Blobs() {
		if b == nil {
			return nil, fmt.Errorf("%w: nil blob handle", ErrUnsupportedValue)
		}
		wire.Blobs = append(wire.Blobs, jsonBlob{DType: b.DType(), Shape: b.Shape(), Data: b.Bytes()})
	}
	return json.Marshal(&wire)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	out, ok := v.(*message.Message)
	if !ok {
		return fmt.Errorf("%w: JSONCodec cannot decode into %T", ErrUnsupportedValue, v)
	}

	var wire jsonMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	blobs := make([]*blob.Blob, 0, len(wire.Blobs))
	for i, jb := range wire.Blobs {
		b, err := blob.New(jb.DType, jb.Shape, jb.Data)
		if err != nil {
			return fmt.Errorf("codec: blob %d: %w", i, err)
		}
		blobs = append(blobs, b)
	}

	msg, err := message.FromTupleValue(ivalue.Tuple(
		ivalue.StringBytes(wire.Payload),
		ivalue.BlobList(blobs),
		ivalue.Int(wire.Type),
		ivalue.Int(wire.ID),
	))
	if err != nil {
		return err
	}
	*out = msg
	return nil
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
