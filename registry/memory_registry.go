package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry for single-process groups and tests.
// TTLs are ignored: entries live until Deregister.
type MemoryRegistry struct {
	mu       sync.Mutex
	workers  map[string]WorkerInfo
	watchers []chan []WorkerInfo
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{workers: make(map[string]WorkerInfo)}
}

func (m *MemoryRegistry) Register(ctx context.Context, worker WorkerInfo, ttl time.Duration) error {
	if worker.Name == "" {
		return fmt.Errorf("registry: worker name is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[worker.Name] = worker
	m.notifyLocked()
	return nil
}

func (m *MemoryRegistry) Deregister(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workers, name)
	m.notifyLocked()
	return nil
}

func (m *MemoryRegistry) Lookup(ctx context.Context, name string) (WorkerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	worker, ok := m.workers[name]
	if !ok {
		return WorkerInfo{}, fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	return worker, nil
}

func (m *MemoryRegistry) List(ctx context.Context) ([]WorkerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(), nil
}

func (m *MemoryRegistry) Watch(ctx context.Context) <-chan []WorkerInfo {
	ch := make(chan []WorkerInfo, 1)
	m.mu.Lock()
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		m.watchers = slices.DeleteFunc(m.watchers, func(w chan []WorkerInfo) bool { return w == ch })
		close(ch)
	}()
	return ch
}

// listLocked returns the workers ordered by rank, then name.
func (m *MemoryRegistry) listLocked() []WorkerInfo {
	workers := make([]WorkerInfo, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	sortWorkers(workers)
	return workers
}

// notifyLocked replaces any unread snapshot so watchers always see the latest list.
func (m *MemoryRegistry) notifyLocked() {
	snapshot := m.listLocked()
	for _, ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

func sortWorkers(workers []WorkerInfo) {
	slices.SortFunc(workers, func(a, b WorkerInfo) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
