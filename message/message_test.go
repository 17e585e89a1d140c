package message

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"dist-rpc/blob"
	"dist-rpc/ivalue"
)

func testBlobs(t *testing.T) []*blob.Blob {
	t.Helper()
	weights, err := blob.New(blob.Float32, []int64{2, 2}, make([]byte, 16))
	if err != nil {
		t.Fatalf("Failed to build blob: %v", err)
	}
	return []*blob.Blob{weights, blob.FromBytes([]byte("grad"))}
}

func TestZeroValueIsDefault(t *testing.T) {
	var msg Message
	if msg.ID() != UnsetID {
		t.Fatalf("Expect unset id %d, got %d", UnsetID, msg.ID())
	}
	if msg.HasID() {
		t.Fatal("zero Message should not have an id")
	}
	if len(msg.Payload()) != 0 || len(msg.Blobs()) != 0 {
		t.Fatal("zero Message should be empty")
	}

	created := New([]byte("x"), nil, PythonCall)
	if created.ID() != UnsetID {
		t.Errorf("New should leave the id unset, got %d", created.ID())
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		blobs   []*blob.Blob
		typ     MessageType
		id      int64
	}{
		{"script call with blobs", []byte("aten::add"), testBlobs(t), ScriptCall, 7},
		{"empty payload", nil, nil, RRefAck, 0},
		{"binary payload", []byte{0x00, 0xff, 0x10, 0x00}, nil, PythonRet, 1 << 40},
		{"unset id", []byte("p"), nil, RemoteRet, UnsetID},
		{"unknown tag", []byte("future"), nil, MessageType(999), 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig := NewWithID(tc.payload, tc.blobs, tc.typ, tc.id)

			decoded, err := FromTupleValue(orig.ToTupleValue())
			if err != nil {
				t.Fatalf("FromTupleValue failed: %v", err)
			}
			if !decoded.Equal(&orig) {
				t.Fatalf("round trip mismatch: got %v/%d, want %v/%d", decoded.Type(), decoded.ID(), orig.Type(), orig.ID())
			}
			for i, b := range decoded.Blobs() {
				if b != tc.blobs[i] {
					t.Errorf("blob %d should be the same handle", i)
				}
			}
		})
	}
}

func TestToTupleValueShape(t *testing.T) {
	msg := NewWithID([]byte("abc"), testBlobs(t), BackwardAutogradReq, 12)
	v := msg.ToTupleValue()

	if !v.IsTuple() || v.Len() != 4 {
		t.Fatalf("expect a 4-tuple, got %s of len %d", v.Kind(), v.Len())
	}
	slots, _ := v.Elements()
	if s, _ := slots[0].ToStringRef(); s != "abc" {
		t.Errorf("payload slot: got %q", s)
	}
	if blobs, _ := slots[1].ToBlobVector(); len(blobs) != 2 {
		t.Errorf("blobs slot: got %d blobs", len(blobs))
	}
	if typ, _ := slots[2].ToInt(); typ != int64(BackwardAutogradReq) {
		t.Errorf("type slot: got %d", typ)
	}
	if id, _ := slots[3].ToInt(); id != 12 {
		t.Errorf("id slot: got %d", id)
	}
}

func TestFromTupleValueRejects(t *testing.T) {
	good := []ivalue.Value{
		ivalue.String("p"),
		ivalue.BlobList(nil),
		ivalue.Int(int64(ScriptCall)),
		ivalue.Int(1),
	}
	with := func(slot int, v ivalue.Value) ivalue.Value {
		slots := append([]ivalue.Value(nil), good...)
		slots[slot] = v
		return ivalue.Tuple(slots...)
	}
	intList, err := ivalue.List(ivalue.KindInt, ivalue.Int(1))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		value ivalue.Value
		want  error
	}{
		{"non tuple", ivalue.Int(5), ErrMalformedTuple},
		{"list instead of tuple", ivalue.BlobList(nil), ErrMalformedTuple},
		{"three elements", ivalue.Tuple(good[:3]...), ErrMalformedTuple},
		{"five elements", ivalue.Tuple(append(good, ivalue.Int(0))...), ErrMalformedTuple},
		{"int payload", with(0, ivalue.Int(1)), ErrSlotType},
		{"string blobs", with(1, ivalue.String("nope")), ErrSlotType},
		{"int list blobs", with(1, intList), ErrSlotType},
		{"string type", with(2, ivalue.String("SCRIPT_CALL")), ErrSlotType},
		{"none id", with(3, ivalue.None()), ErrSlotType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := FromTupleValue(tc.value)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expect %v, got %v", tc.want, err)
			}
			var empty Message
			if !msg.Equal(&empty) {
				t.Fatal("a failed conversion must not return a partial Message")
			}
		})
	}
}

func TestClassificationExclusive(t *testing.T) {
	for _, typ := range RequestTypes() {
		if !typ.IsRequest() || typ.IsResponse() {
			t.Errorf("%s: IsRequest=%v IsResponse=%v", typ, typ.IsRequest(), typ.IsResponse())
		}
	}
	for _, typ := range ResponseTypes() {
		if typ.IsRequest() || !typ.IsResponse() {
			t.Errorf("%s: IsRequest=%v IsResponse=%v", typ, typ.IsRequest(), typ.IsResponse())
		}
	}
	for typ := range typeNames {
		if typ.IsRequest() && typ.IsResponse() {
			t.Errorf("%s is in both sets", typ)
		}
	}
	if len(RequestTypes()) != 13 || len(ResponseTypes()) != 11 {
		t.Errorf("set sizes: got %d requests, %d responses", len(RequestTypes()), len(ResponseTypes()))
	}

	for _, typ := range []MessageType{Unknown, MessageType(999)} {
		if typ.IsRequest() || typ.IsResponse() {
			t.Errorf("%s should be neither request nor response", typ)
		}
	}

	msg := New(nil, nil, PythonRemoteCall)
	if !msg.IsRequest() || msg.IsResponse() {
		t.Error("PYTHON_REMOTE_CALL message should be a request")
	}
}

func TestTypeString(t *testing.T) {
	if ScriptRRefFetchCall.String() != "SCRIPT_RREF_FETCH_CALL" {
		t.Errorf("got %s", ScriptRRefFetchCall)
	}
	if MessageType(77).String() != "MessageType(77)" {
		t.Errorf("got %s", MessageType(77))
	}
	if MessageType(77).Known() || !Exception.Known() {
		t.Error("Known mismatch")
	}
}

func TestTakePayloadLeavesRestUntouched(t *testing.T) {
	blobs := testBlobs(t)
	msg := NewWithID([]byte("payload"), blobs, ScriptCall, 3)

	payload := msg.TakePayload()
	if string(payload) != "payload" {
		t.Fatalf("extracted payload: got %q", payload)
	}
	if len(msg.Payload()) != 0 {
		t.Fatalf("payload should be empty after extraction, got %q", msg.Payload())
	}
	if len(msg.Blobs()) != len(blobs) || msg.Type() != ScriptCall || msg.ID() != 3 {
		t.Fatal("blobs, type and id must survive payload extraction")
	}

	taken := msg.TakeBlobs()
	if len(taken) != 2 || len(msg.Blobs()) != 0 {
		t.Fatalf("blob extraction: took %d, left %d", len(taken), len(msg.Blobs()))
	}
}

func TestMoveEmptiesSource(t *testing.T) {
	payload := []byte("big")
	src := NewWithID(payload, testBlobs(t), PythonCall, 9)

	dst := src.Move()
	if &dst.Payload()[0] != &payload[0] {
		t.Error("Move must not copy the payload buffer")
	}
	if dst.ID() != 9 || dst.Type() != PythonCall || len(dst.Blobs()) != 2 {
		t.Fatal("destination lost fields")
	}
	if len(src.Payload()) != 0 || len(src.Blobs()) != 0 || src.HasID() {
		t.Fatal("source should be empty after Move")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewWithID([]byte("hello"), testBlobs(t), ScriptCall, 1)
	cp := orig.Clone()

	cp.Payload()[0] = 'J'
	cp.Blobs()[0] = blob.FromBytes([]byte("other"))

	if string(orig.Payload()) != "hello" {
		t.Fatalf("original payload changed to %q", orig.Payload())
	}
	if orig.Blobs()[0] == cp.Blobs()[0] {
		t.Fatal("original blob list changed")
	}
	if orig.Blobs()[1] != cp.Blobs()[1] {
		t.Fatal("clone should share blob handles")
	}
}

func TestSwapTwiceRestores(t *testing.T) {
	a := NewWithID([]byte("a"), testBlobs(t), ScriptCall, 1)
	b := New([]byte("bb"), nil, RRefAck)
	aWant, bWant := a.Clone(), b.Clone()

	a.Swap(&b)
	if !a.Equal(&bWant) || !b.Equal(&aWant) {
		t.Fatal("single swap should exchange contents")
	}
	if a.HasID() || !b.HasID() {
		t.Fatal("swap should carry the id assignment")
	}

	a.Swap(&b)
	if !a.Equal(&aWant) || !b.Equal(&bWant) {
		t.Fatal("double swap should restore both messages")
	}
}

func TestCopyFromAndMoveFrom(t *testing.T) {
	src := NewWithID([]byte("src"), testBlobs(t), ScriptRet, 4)
	dst := New([]byte("old"), nil, PythonCall)

	dst.CopyFrom(&src)
	if !dst.Equal(&src) {
		t.Fatal("CopyFrom should produce an equal message")
	}
	dst.Payload()[0] = 'S'
	if string(src.Payload()) != "src" {
		t.Fatal("CopyFrom must deep copy the payload")
	}

	dst.CopyFrom(&dst)
	if string(dst.Payload()) != "Src" {
		t.Fatal("self copy must be a no-op")
	}

	var target Message
	target.MoveFrom(&src)
	if string(target.Payload()) != "src" || target.ID() != 4 {
		t.Fatal("MoveFrom lost fields")
	}
	if len(src.Payload()) != 0 || src.HasID() {
		t.Fatal("MoveFrom should empty the source")
	}
}

func TestSetID(t *testing.T) {
	msg := New([]byte("req"), nil, ScriptCall)
	if err := msg.SetID(10); err != nil {
		t.Fatalf("first SetID failed: %v", err)
	}
	if err := msg.SetID(10); err != nil {
		t.Fatalf("setting the same id should be a no-op, got %v", err)
	}

	err := msg.SetID(11)
	if !errors.Is(err, ErrIDAlreadySet) {
		t.Fatalf("expect ErrIDAlreadySet, got %v", err)
	}
	var conflict *IDConflictError
	if !errors.As(err, &conflict) || conflict.Current != 10 || conflict.Requested != 11 {
		t.Fatalf("expect IDConflictError{10, 11}, got %v", err)
	}
	if msg.ID() != 10 {
		t.Fatalf("id should be unchanged, got %d", msg.ID())
	}

	fresh := New(nil, nil, ScriptCall)
	if err := fresh.SetID(UnsetID); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expect ErrInvalidID, got %v", err)
	}
}

func TestExceptionResponse(t *testing.T) {
	msg := NewExceptionResponse("boom", 42)

	if msg.Type() != Exception || !msg.Type().IsResponse() {
		t.Fatalf("expect a response-category EXCEPTION, got %s", msg.Type())
	}
	if msg.ID() != 42 {
		t.Errorf("id: got %d, want 42", msg.ID())
	}
	if string(msg.Payload()) != "boom" {
		t.Errorf("payload: got %q", msg.Payload())
	}
	if len(msg.Blobs()) != 0 {
		t.Errorf("expect no blobs, got %d", len(msg.Blobs()))
	}
	if !msg.IsResponse() || msg.IsRequest() {
		t.Error("exception must classify as response only")
	}

	fromErr := NewErrorResponse(fmt.Errorf("wrapped: %w", io.EOF), 7)
	if string(fromErr.Payload()) != "wrapped: EOF" || fromErr.ID() != 7 {
		t.Errorf("NewErrorResponse: got %q id %d", fromErr.Payload(), fromErr.ID())
	}
}

func TestRemoteError(t *testing.T) {
	msg := NewExceptionResponse("division by zero", 5)
	err := msg.RemoteError()

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expect *RemoteError, got %T", err)
	}
	if remote.ID != 5 || remote.Text != "division by zero" {
		t.Errorf("got %+v", remote)
	}

	ok := New([]byte("1"), nil, ScriptRet)
	if ok.RemoteError() != nil {
		t.Error("non-exception message should carry no error")
	}
}

func TestPayloadReader(t *testing.T) {
	msg := New([]byte("read me"), nil, PythonCall)
	data, err := io.ReadAll(msg.PayloadReader())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "read me" {
		t.Fatalf("got %q", data)
	}
}
