package dispatch

import (
	"fmt"
	"sync"

	"dist-rpc/message"
)

// Pending tracks requests waiting for their response, keyed by correlation id.
// Responses may arrive in any order; each one is routed to the channel registered
// under its id.
type Pending struct {
	waiters sync.Map // map[int64]chan message.Message, each buffered so Fulfill never blocks
}

func NewPending() *Pending {
	return &Pending{}
}

// Add registers a waiter for id. Register BEFORE the request can be answered,
// otherwise a fast response finds no waiter.
func (p *Pending) Add(id int64) (<-chan message.Message, error) {
	if id == message.UnsetID {
		return nil, fmt.Errorf("%w: request has no id", ErrNoID)
	}
	ch := make(chan message.Message, 1)
	if _, loaded := p.waiters.LoadOrStore(id, ch); loaded {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	return ch, nil
}

// Fulfill hands resp to the waiter registered under its id and removes the entry.
// It reports false when nobody is waiting (late response after a cancel, or a
// response to an unknown id).
func (p *Pending) Fulfill(resp message.Message) bool {
	ch, ok := p.waiters.LoadAndDelete(resp.ID())
	if !ok {
		return false
	}
	ch.(chan message.Message) <- resp
	return true
}

// Cancel drops the waiter for id. A response arriving later is discarded.
func (p *Pending) Cancel(id int64) bool {
	_, ok := p.waiters.LoadAndDelete(id)
	return ok
}

// FailAll answers every waiter with an exception response built from err and
// returns how many were failed.
func (p *Pending) FailAll(err error) int {
	n := 0
	p.waiters.Range(func(key, value any) bool {
		if _, ok := p.waiters.LoadAndDelete(key); ok {
			value.(chan message.Message) <- message.NewErrorResponse(err, key.(int64))
			n++
		}
		return true
	})
	return n
}

// Len returns the number of outstanding requests.
func (p *Pending) Len() int {
	n := 0
	p.waiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
