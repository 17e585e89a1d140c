// Package blob provides the opaque large-binary handle carried next to a message
// payload. A *Blob is a shared handle: copying the pointer shares the underlying
// storage, which is how tensors travel through the envelope without being copied.
package blob

import (
	"bytes"
	"fmt"
	"math"
	"slices"
)

// DType identifies the element type of a blob's storage.
type DType uint8

const (
	Uint8   DType = 0
	Int32   DType = 1
	Int64   DType = 2
	Float32 DType = 3
	Float64 DType = 4
)

// Size returns the element width in bytes, or 0 for an unknown dtype.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// Blob is a dense n-dimensional buffer. Its storage is never copied by this module.
type Blob struct {
	dtype DType
	shape []int64
	data  []byte // Little-endian element storage, len == Numel() * dtype.Size()
}

// New builds a blob over data. data is not copied; the caller hands over ownership.
func New(dtype DType, shape []int64, data []byte) (*Blob, error) {
	if dtype.Size() == 0 {
		return nil, fmt.Errorf("blob: unsupported dtype %d", uint8(dtype))
	}
	numel := int64(1)
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("blob: negative dimension %d in shape %v", dim, shape)
		}
		if dim != 0 && numel > math.MaxInt64/dim {
			return nil, fmt.Errorf("blob: shape %v overflows element count", shape)
		}
		numel *= dim
	}
	if numel > math.MaxInt64/int64(dtype.Size()) {
		return nil, fmt.Errorf("blob: shape %v of %s overflows byte size", shape, dtype)
	}
	if want := numel * int64(dtype.Size()); int64(len(data)) != want {
		return nil, fmt.Errorf("blob: shape %v of %s needs %d bytes, got %d", shape, dtype, want, len(data))
	}
	return &Blob{dtype: dtype, shape: slices.Clone(shape), data: data}, nil
}

// FromBytes wraps raw bytes as a 1-D uint8 blob.
func FromBytes(data []byte) *Blob {
	return &Blob{dtype: Uint8, shape: []int64{int64(len(data))}, data: data}
}

func (b *Blob) DType() DType { return b.dtype }

// Shape returns a copy of the blob's dimensions.
func (b *Blob) Shape() []int64 { return slices.Clone(b.shape) }

// Bytes exposes the shared storage. Writes through it are visible to every holder.
func (b *Blob) Bytes() []byte { return b.data }

// Numel returns the number of elements.
func (b *Blob) Numel() int64 {
	n := int64(1)
	for _, dim := range b.shape {
		n *= dim
	}
	return n
}

// Equal reports whether two blobs are the same handle or hold identical content.
func (b *Blob) Equal(other *Blob) bool {
	if b == other {
		return true
	}
	if b == nil || other == nil {
		return false
	}
	return b.dtype == other.dtype && slices.Equal(b.shape, other.shape) && bytes.Equal(b.data, other.data)
}

func (b *Blob) String() string {
	if b == nil {
		return "blob(nil)"
	}
	return fmt.Sprintf("blob(%s%v)", b.dtype, b.shape)
}
