package dispatch

import "sync/atomic"

// IDAllocator hands out correlation ids. Ids are never reused within one
// allocator, so two outstanding requests can never share an id.
type IDAllocator struct {
	next atomic.Int64
}

// NextID returns 0, 1, 2, ...
func (a *IDAllocator) NextID() int64 {
	return a.next.Add(1) - 1
}
