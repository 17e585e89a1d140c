// Package registry keeps track of the workers in a process group so a peer can
// resolve a worker name to its rank and address before sending it messages.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrWorkerNotFound is returned by Lookup for a name nobody registered.
var ErrWorkerNotFound = errors.New("registry: worker not found")

// WorkerInfo describes one member of the process group.
type WorkerInfo struct {
	Name string `json:"name"` // Unique within the group, e.g. "trainer0"
	Rank int64  `json:"rank"`
	Addr string `json:"addr"`
}

type Registry interface {
	Register(ctx context.Context, worker WorkerInfo, ttl time.Duration) error
	Deregister(ctx context.Context, name string) error
	Lookup(ctx context.Context, name string) (WorkerInfo, error)
	List(ctx context.Context) ([]WorkerInfo, error)
	// Watch emits the full worker list after every membership change until ctx is done.
	Watch(ctx context.Context) <-chan []WorkerInfo
}
