package codec

import (
	"encoding/binary"
	"fmt"

	"dist-rpc/blob"
	"dist-rpc/ivalue"
	"dist-rpc/message"
)

// BinaryCodec writes a tagged value as:
//
//	None    kind
//	Int     kind | int64
//	String  kind | uint32 len | bytes
//	Blob    kind | dtype | uint32 ndim | ndim * int64 | uint32 len | bytes
//	List    kind | elem kind | uint32 count | items
//	Tuple   kind | uint32 count | items
//
// All integers are big-endian. v may be *message.Message or *ivalue.Value.
type BinaryCodec struct{}

// Nesting deeper than this is rejected on decode.
const maxDepth = 32

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	var value ivalue.Value
	switch x := v.(type) {
	case *message.Message:
		value = x.ToTupleValue()
	case *ivalue.Value:
		value = *x
	default:
		return nil, fmt.Errorf("%w: BinaryCodec cannot encode %T", ErrUnsupportedValue, v)
	}
	return appendValue(make([]byte, 0, 64), value)
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	d := &decoder{data: data}
	value, err := d.value(0)
	if err != nil {
		return err
	}
	if d.offset != len(data) {
		return fmt.Errorf("%w: %d bytes after value", ErrTrailingData, len(data)-d.offset)
	}

	switch out := v.(type) {
	case *message.Message:
		msg, err := message.FromTupleValue(value)
		if err != nil {
			return err
		}
		*out = msg
	case *ivalue.Value:
		*out = value
	default:
		return fmt.Errorf("%w: BinaryCodec cannot decode into %T", ErrUnsupportedValue, v)
	}
	return nil
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

func appendValue(buf []byte, v ivalue.Value) ([]byte, error) {
	buf = append(buf, byte(v.Kind()))
	switch v.Kind() {
	case ivalue.KindNone:
	case ivalue.KindInt:
		n, _ := v.ToInt()
		buf = binary.BigEndian.AppendUint64(buf, uint64(n))
	case ivalue.KindString:
		s, _ := v.ToStringRef()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	case ivalue.KindBlob:
		b, _ := v.ToBlob()
		if b == nil {
			return nil, fmt.Errorf("%w: nil blob handle", ErrUnsupportedValue)
		}
		buf = append(buf, byte(b.DType()))
		shape := b.Shape()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(shape)))
		for _, dim := range shape {
			buf = binary.BigEndian.AppendUint64(buf, uint64(dim))
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(b.Bytes())))
		buf = append(buf, b.Bytes()...)
	case ivalue.KindList, ivalue.KindTuple:
		if v.IsList() {
			elem, _ := v.ElemKind()
			buf = append(buf, byte(elem))
		}
		items, _ := v.Elements()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(items)))
		var err error
		for _, item := range items {
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, v.Kind())
	}
	return buf, nil
}

type decoder struct {
	data   []byte
	offset int
}

func (d *decoder) next(n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.offset < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, d.offset, len(d.data)-d.offset)
	}
	b := d.data[d.offset : d.offset+n]
	d.offset += n
	return b, nil
}

func (d *decoder) readByte() (byte, error) {
	b, err := d.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) readUint32() (uint32, error) {
	b, err := d.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) readInt64() (int64, error) {
	b, err := d.next(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (d *decoder) value(depth int) (ivalue.Value, error) {
	if depth > maxDepth {
		return ivalue.Value{}, fmt.Errorf("codec: nesting deeper than %d", maxDepth)
	}
	kind, err := d.readByte()
	if err != nil {
		return ivalue.Value{}, err
	}

	switch ivalue.Kind(kind) {
	case ivalue.KindNone:
		return ivalue.None(), nil

	case ivalue.KindInt:
		n, err := d.readInt64()
		if err != nil {
			return ivalue.Value{}, err
		}
		return ivalue.Int(n), nil

	case ivalue.KindString:
		n, err := d.readUint32()
		if err != nil {
			return ivalue.Value{}, err
		}
		s, err := d.next(int(n))
		if err != nil {
			return ivalue.Value{}, err
		}
		return ivalue.StringBytes(s), nil

	case ivalue.KindBlob:
		b, err := d.readBlob()
		if err != nil {
			return ivalue.Value{}, err
		}
		return ivalue.FromBlob(b), nil

	case ivalue.KindList:
		elem, err := d.readByte()
		if err != nil {
			return ivalue.Value{}, err
		}
		items, err := d.items(depth)
		if err != nil {
			return ivalue.Value{}, err
		}
		return ivalue.List(ivalue.Kind(elem), items...)

	case ivalue.KindTuple:
		items, err := d.items(depth)
		if err != nil {
			return ivalue.Value{}, err
		}
		return ivalue.Tuple(items...), nil
	}
	return ivalue.Value{}, fmt.Errorf("%w: %d at offset %d", ErrUnknownKind, kind, d.offset-1)
}

func (d *decoder) items(depth int) ([]ivalue.Value, error) {
	count, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	// Every item takes at least one byte; reject counts the input cannot hold.
	if int(count) > len(d.data)-d.offset {
		return nil, fmt.Errorf("%w: %d items announced, %d bytes left", ErrTruncated, count, len(d.data)-d.offset)
	}
	items := make([]ivalue.Value, 0, count)
	for i := uint32(0); i < count; i++ {
		item, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (d *decoder) readBlob() (*blob.Blob, error) {
	dtype, err := d.readByte()
	if err != nil {
		return nil, err
	}
	ndim, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	if int(ndim) > (len(d.data)-d.offset)/8 {
		return nil, fmt.Errorf("%w: %d dimensions announced", ErrTruncated, ndim)
	}
	shape := make([]int64, ndim)
	for i := range shape {
		if shape[i], err = d.readInt64(); err != nil {
			return nil, err
		}
	}
	n, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	raw, err := d.next(int(n))
	if err != nil {
		return nil, err
	}
	// Copy out of the read buffer, the caller may reuse it.
	data := make([]byte, len(raw))
	copy(data, raw)
	return blob.New(blob.DType(dtype), shape, data)
}
