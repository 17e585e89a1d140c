// Package ivalue implements the generic tagged value used to move structured data
// across a serialization boundary. A Value is one of: none, int, string, blob,
// a homogeneous list, or a heterogeneous tuple.
//
// Values are immutable once built. Blob handles are wrapped, never cloned.
package ivalue

import (
	"errors"
	"fmt"

	"dist-rpc/blob"
)

// Kind tags the variant stored in a Value.
type Kind uint8

const (
	KindNone   Kind = 0
	KindInt    Kind = 1
	KindString Kind = 2
	KindBlob   Kind = 3
	KindList   Kind = 4
	KindTuple  Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInt:
		return "Int"
	case KindString:
		return "String"
	case KindBlob:
		return "Blob"
	case KindList:
		return "List"
	case KindTuple:
		return "Tuple"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ErrKind is returned by accessors called on a value of the wrong kind.
var ErrKind = errors.New("ivalue: kind mismatch")

// Value is a tagged union. The zero Value is None.
type Value struct {
	kind  Kind
	i     int64
	s     string
	b     *blob.Blob
	elem  Kind    // Element kind of a list
	items []Value // List elements or tuple slots
}

func None() Value { return Value{} }

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// StringBytes builds a string value holding exactly the bytes of p, no transcoding.
func StringBytes(p []byte) Value { return Value{kind: KindString, s: string(p)} }

func FromBlob(b *blob.Blob) Value { return Value{kind: KindBlob, b: b} }

// BlobList wraps blob handles as a list whose element kind is Blob.
func BlobList(blobs []*blob.Blob) Value {
	items := make([]Value, len(blobs))
	for i, b := range blobs {
		items[i] = FromBlob(b)
	}
	return Value{kind: KindList, elem: KindBlob, items: items}
}

// List builds a homogeneous list. Every item must have kind elem.
func List(elem Kind, items ...Value) (Value, error) {
	for i, item := range items {
		if item.kind != elem {
			return Value{}, fmt.Errorf("%w: list element %d is %s, want %s", ErrKind, i, item.kind, elem)
		}
	}
	return Value{kind: KindList, elem: elem, items: append([]Value(nil), items...)}, nil
}

// Tuple builds a fixed-arity heterogeneous tuple.
func Tuple(items ...Value) Value {
	return Value{kind: KindTuple, items: append([]Value(nil), items...)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNone() bool   { return v.kind == KindNone }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsBlob() bool   { return v.kind == KindBlob }
func (v Value) IsList() bool   { return v.kind == KindList }
func (v Value) IsTuple() bool  { return v.kind == KindTuple }

func (v Value) ToInt() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("%w: expected Int, got %s", ErrKind, v.kind)
	}
	return v.i, nil
}

// ToStringRef returns the string held by a String value.
func (v Value) ToStringRef() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("%w: expected String, got %s", ErrKind, v.kind)
	}
	return v.s, nil
}

func (v Value) ToBlob() (*blob.Blob, error) {
	if v.kind != KindBlob {
		return nil, fmt.Errorf("%w: expected Blob, got %s", ErrKind, v.kind)
	}
	return v.b, nil
}

// ToBlobVector unwraps a list of blobs. Fails if v is not a list or any element
// is not a blob.
func (v Value) ToBlobVector() ([]*blob.Blob, error) {
	if v.kind != KindList {
		return nil, fmt.Errorf("%w: expected List, got %s", ErrKind, v.kind)
	}
	blobs := make([]*blob.Blob, len(v.items))
	for i, item := range v.items {
		if item.kind != KindBlob {
			return nil, fmt.Errorf("%w: list element %d is %s, want Blob", ErrKind, i, item.kind)
		}
		blobs[i] = item.b
	}
	return blobs, nil
}

// ElemKind returns the element kind of a list.
func (v Value) ElemKind() (Kind, error) {
	if v.kind != KindList {
		return KindNone, fmt.Errorf("%w: expected List, got %s", ErrKind, v.kind)
	}
	return v.elem, nil
}

// Elements returns the slots of a tuple or the items of a list.
// The returned slice must not be modified.
func (v Value) Elements() ([]Value, error) {
	if v.kind != KindTuple && v.kind != KindList {
		return nil, fmt.Errorf("%w: expected Tuple or List, got %s", ErrKind, v.kind)
	}
	return v.items, nil
}

// Len returns the number of elements of a tuple or list, 0 otherwise.
func (v Value) Len() int {
	return len(v.items)
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBlob:
		return v.b.String()
	case KindList:
		return fmt.Sprintf("%v", v.items)
	case KindTuple:
		return fmt.Sprintf("tuple%v", v.items)
	}
	return "None"
}
