package dispatch

import (
	"errors"
	"sync"
	"testing"

	"dist-rpc/message"
)

func TestIDAllocatorUnique(t *testing.T) {
	var ids IDAllocator
	if first := ids.NextID(); first != 0 {
		t.Fatalf("expect first id 0, got %d", first)
	}

	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids.NextID()
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("id %d handed out twice", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()
}

func TestPendingOutOfOrder(t *testing.T) {
	p := NewPending()
	ch1, err := p.Add(1)
	if err != nil {
		t.Fatal(err)
	}
	ch2, err := p.Add(2)
	if err != nil {
		t.Fatal(err)
	}

	if !p.Fulfill(message.NewWithID([]byte("two"), nil, message.PythonRet, 2)) {
		t.Fatal("expect waiter for id 2")
	}
	if !p.Fulfill(message.NewWithID([]byte("one"), nil, message.PythonRet, 1)) {
		t.Fatal("expect waiter for id 1")
	}

	r1, r2 := <-ch1, <-ch2
	if string(r1.Payload()) != "one" || string(r2.Payload()) != "two" {
		t.Fatalf("responses crossed: %q %q", r1.Payload(), r2.Payload())
	}
	if p.Len() != 0 {
		t.Fatalf("expect empty table, got %d", p.Len())
	}
}

func TestPendingDuplicateAndMissingID(t *testing.T) {
	p := NewPending()
	if _, err := p.Add(5); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(5); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expect ErrDuplicateID, got %v", err)
	}
	if _, err := p.Add(message.UnsetID); !errors.Is(err, ErrNoID) {
		t.Fatalf("expect ErrNoID, got %v", err)
	}
}

func TestPendingCancel(t *testing.T) {
	p := NewPending()
	p.Add(8)
	if !p.Cancel(8) {
		t.Fatal("expect Cancel to find id 8")
	}
	if p.Fulfill(message.NewWithID(nil, nil, message.ScriptRet, 8)) {
		t.Fatal("late response after cancel must be dropped")
	}
	if p.Cancel(8) {
		t.Fatal("second Cancel should report false")
	}
}

func TestPendingFailAll(t *testing.T) {
	p := NewPending()
	ch1, _ := p.Add(1)
	ch2, _ := p.Add(2)

	if n := p.FailAll(errors.New("connection reset")); n != 2 {
		t.Fatalf("expect 2 failed, got %d", n)
	}
	for _, ch := range []<-chan message.Message{ch1, ch2} {
		resp := <-ch
		if resp.Type() != message.Exception || string(resp.Payload()) != "connection reset" {
			t.Errorf("got %s %q", resp.Type(), resp.Payload())
		}
	}
	if p.Len() != 0 {
		t.Fatalf("expect empty table, got %d", p.Len())
	}
}
