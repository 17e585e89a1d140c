// Package registry also provides the etcd-based implementation of the Registry interface.
//
// etcd is a distributed key-value store that provides strong consistency (Raft protocol).
// We use it as the process group's membership table:
//
//	Key:   {Prefix}/{WorkerName}
//	Value: JSON-encoded WorkerInfo
//
// Registration uses TTL-based leases: if a worker crashes, the lease expires
// and the entry is automatically removed, so peers stop resolving a dead worker.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// Config configures the etcd client behind EtcdRegistry.
type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string      // Key prefix for this process group, without trailing slash
	Logger      *zap.Logger // Handed to the etcd client as well; nil means no logging
}

func DefaultConfig() Config {
	return Config{
		Endpoints:   []string{"127.0.0.1:2379"},
		DialTimeout: 5 * time.Second,
		Prefix:      "/dist-rpc/workers",
		Logger:      zap.NewNop(),
	}
}

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
	prefix string
	logger *zap.Logger
}

// NewEtcdRegistry creates a new registry connected to the configured endpoints.
func NewEtcdRegistry(cfg Config) (*EtcdRegistry, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{
		client: c,
		prefix: strings.TrimSuffix(cfg.Prefix, "/") + "/",
		logger: logger,
	}, nil
}

// Close releases the etcd client. Leases held by this registry expire after their TTL.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}

func (r *EtcdRegistry) key(name string) string {
	return r.prefix + name
}

// Register adds a worker to etcd with a TTL lease.
//
// Flow:
//  1. Create a lease with the given TTL (rounded up to whole seconds, at least 1)
//  2. Put the key-value pair with the lease attached
//  3. Start KeepAlive to automatically renew the lease
//
// Note: the lease ID is a local variable, NOT stored on the struct, so several
// workers can share one EtcdRegistry without racing.
func (r *EtcdRegistry) Register(ctx context.Context, worker WorkerInfo, ttl time.Duration) error {
	if worker.Name == "" {
		return fmt.Errorf("registry: worker name is empty")
	}
	seconds := max(int64((ttl+time.Second-1)/time.Second), 1)

	// Create a TTL-based lease; if KeepAlive stops, the entry auto-expires
	lease, err := r.client.Grant(ctx, seconds)
	if err != nil {
		return err
	}

	val, err := json.Marshal(worker)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, r.key(worker.Name), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	// KeepAlive must outlive the registration call, so it gets its own context.
	ch, err := r.client.KeepAlive(context.WithoutCancel(ctx), lease.ID)
	if err != nil {
		return err
	}

	// Consume KeepAlive responses to prevent the channel from filling up
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keepalive stopped", zap.String("worker", worker.Name))
	}()
	r.logger.Info("worker registered", zap.String("worker", worker.Name),
		zap.Int64("rank", worker.Rank), zap.String("addr", worker.Addr))
	return nil
}

// Deregister removes a worker from etcd.
func (r *EtcdRegistry) Deregister(ctx context.Context, name string) error {
	_, err := r.client.Delete(ctx, r.key(name))
	if err != nil {
		return err
	}
	r.logger.Info("worker deregistered", zap.String("worker", name))
	return nil
}

// Lookup resolves a worker name.
func (r *EtcdRegistry) Lookup(ctx context.Context, name string) (WorkerInfo, error) {
	resp, err := r.client.Get(ctx, r.key(name))
	if err != nil {
		return WorkerInfo{}, err
	}
	if len(resp.Kvs) == 0 {
		return WorkerInfo{}, fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	var worker WorkerInfo
	if err := json.Unmarshal(resp.Kvs[0].Value, &worker); err != nil {
		return WorkerInfo{}, fmt.Errorf("registry: decode %s: %w", name, err)
	}
	return worker, nil
}

// List returns every registered worker ordered by rank.
func (r *EtcdRegistry) List(ctx context.Context) ([]WorkerInfo, error) {
	resp, err := r.client.Get(ctx, r.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	workers := make([]WorkerInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var worker WorkerInfo
		if err := json.Unmarshal(kv.Value, &worker); err != nil {
			r.logger.Warn("skipping malformed worker entry", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		workers = append(workers, worker)
	}
	sortWorkers(workers)
	return workers, nil
}

// Watch monitors the group prefix in etcd and emits the updated worker list
// whenever membership changes (registrations, deregistrations, lease expirations).
//
// Uses etcd's Watch API (server-push), which is more efficient than polling.
func (r *EtcdRegistry) Watch(ctx context.Context) <-chan []WorkerInfo {
	ch := make(chan []WorkerInfo, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, r.prefix, clientv3.WithPrefix())
		for range watchChan {
			// On any change, re-fetch the full list
			// (simpler than parsing individual watch events)
			workers, err := r.List(ctx)
			if err != nil {
				r.logger.Warn("watch refresh failed", zap.Error(err))
				continue
			}
			select {
			case ch <- workers:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
