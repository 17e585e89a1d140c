// Package dispatch routes inbound messages inside one worker.
//
// Requests go through the middleware chain to the handler registered for their
// type, and the handler's response is stamped with the request's correlation id.
// Responses complete the pending request with the same id.
//
//	Route(msg) ── IsRequest  ──→ middleware chain → handler → response (id = request id)
//	           ├─ IsResponse ──→ Pending.Fulfill(id)
//	           └─ neither    ──→ ErrUnroutable
package dispatch

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dist-rpc/message"
	"dist-rpc/middleware"
	"dist-rpc/registry"
)

// Config controls the middleware New installs and the group membership of the worker.
type Config struct {
	RateLimit float64       // Requests per second; 0 disables rate limiting
	Burst     int           // Token bucket size when RateLimit > 0
	Timeout   time.Duration // Per-request handler deadline; 0 disables
	Logger    *zap.Logger   // nil means no logging

	Registry registry.Registry   // Process group membership; nil disables Join and Resolve
	Self     registry.WorkerInfo // This worker, registered by Join
	TTL      time.Duration       // Registration lease
}

func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Logger:  zap.NewNop(),
		TTL:     10 * time.Second,
	}
}

// Dispatcher owns the handler table, the middleware chain and the pending table.
type Dispatcher struct {
	mu          sync.RWMutex
	handlers    map[message.MessageType]middleware.HandlerFunc
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc // middleware(middleware(...(route)))

	pending *Pending
	ids     IDAllocator
	logger  *zap.Logger
	wg      sync.WaitGroup // In-flight requests, waited on by Shutdown
	closed  atomic.Bool

	registry registry.Registry
	self     registry.WorkerInfo
	ttl      time.Duration
	joined   atomic.Bool
}

// New builds a dispatcher with recover and logging middleware, plus rate limiting
// and a timeout when cfg enables them.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		handlers: make(map[message.MessageType]middleware.HandlerFunc),
		pending:  NewPending(),
		logger:   logger,
		registry: cfg.Registry,
		self:     cfg.Self,
		ttl:      cfg.TTL,
	}
	d.Use(middleware.LoggingMiddleware(logger))
	if cfg.RateLimit > 0 {
		d.Use(middleware.RateLimitMiddleware(cfg.RateLimit, max(cfg.Burst, 1)))
	}
	if cfg.Timeout > 0 {
		d.Use(middleware.TimeOutMiddleware(cfg.Timeout))
	}
	// Innermost, so a panic is recovered on the goroutine that runs the handler.
	d.Use(middleware.RecoverMiddleware())
	return d
}

// Register installs the handler for a request type, replacing any previous one.
func (d *Dispatcher) Register(typ message.MessageType, h middleware.HandlerFunc) error {
	if !typ.IsRequest() {
		return fmt.Errorf("%w: %s", ErrNotRequest, typ)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[typ] = h
	return nil
}

// Use appends a middleware. Middlewares run in the order they were added.
func (d *Dispatcher) Use(mw middleware.Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, mw)
	d.handler = middleware.Chain(d.middlewares...)(d.route)
}

// Pending exposes the table of outstanding requests.
func (d *Dispatcher) Pending() *Pending {
	return d.pending
}

// NextID allocates a correlation id for an outgoing request.
func (d *Dispatcher) NextID() int64 {
	return d.ids.NextID()
}

// Join registers this worker in the process group.
func (d *Dispatcher) Join(ctx context.Context) error {
	if d.registry == nil {
		return ErrNoRegistry
	}
	if d.closed.Load() {
		return ErrClosed
	}
	if err := d.registry.Register(ctx, d.self, d.ttl); err != nil {
		return fmt.Errorf("dispatch: join as %s: %w", d.self.Name, err)
	}
	d.joined.Store(true)
	return nil
}

// Resolve looks up a peer worker by name.
func (d *Dispatcher) Resolve(ctx context.Context, name string) (registry.WorkerInfo, error) {
	if d.registry == nil {
		return registry.WorkerInfo{}, ErrNoRegistry
	}
	return d.registry.Lookup(ctx, name)
}

// Route delivers one inbound message. For a request it returns the response to
// send back; for a response it completes the matching pending request and
// returns nil.
func (d *Dispatcher) Route(ctx context.Context, msg message.Message) (*message.Message, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	switch {
	case msg.IsRequest():
		return d.Handle(ctx, &msg)
	case msg.IsResponse():
		id := msg.ID()
		if !d.pending.Fulfill(msg) {
			d.logger.Warn("dropping response without pending request",
				zap.Stringer("type", msg.Type()), zap.Int64("id", id))
			return nil, fmt.Errorf("%w: id %d", ErrNoPending, id)
		}
		return nil, nil
	}
	d.logger.Error("unroutable message", zap.Stringer("type", msg.Type()), zap.Int64("id", msg.ID()))
	return nil, fmt.Errorf("%w: %s", ErrUnroutable, msg.Type())
}

// Handle runs a request through the middleware chain and returns its response.
// The response always carries the request's id.
func (d *Dispatcher) Handle(ctx context.Context, req *message.Message) (*message.Message, error) {
	if !req.IsRequest() {
		return nil, fmt.Errorf("%w: %s", ErrNotRequest, req.Type())
	}
	// Shutdown flips closed under the write lock; no wg.Add may follow it.
	d.mu.RLock()
	if d.closed.Load() {
		d.mu.RUnlock()
		return nil, ErrClosed
	}
	d.wg.Add(1)
	handler := d.handler
	d.mu.RUnlock()
	defer d.wg.Done()

	resp := handler(ctx, req)
	if resp == nil {
		exc := message.NewExceptionResponse(fmt.Sprintf("no response for %s", req.Type()), req.ID())
		return &exc, nil
	}
	return withID(resp, req.ID()), nil
}

// Call sends req to this worker's own handlers and waits for the response:
// it assigns a fresh id, registers the pending entry, routes the request and
// routes the response back through Pending. An exception response is returned
// together with its RemoteError.
func (d *Dispatcher) Call(ctx context.Context, req message.Message) (message.Message, error) {
	if d.closed.Load() {
		return message.Message{}, ErrClosed
	}
	if !req.IsRequest() {
		return message.Message{}, fmt.Errorf("%w: %s", ErrNotRequest, req.Type())
	}
	if err := req.SetID(d.NextID()); err != nil {
		return message.Message{}, err
	}
	id := req.ID()
	ch, err := d.pending.Add(id)
	if err != nil {
		return message.Message{}, err
	}

	// The callee side does not observe the caller giving up, as with a remote peer.
	calleeCtx := context.WithoutCancel(ctx)
	go func() {
		resp, err := d.Route(calleeCtx, req.Move())
		if err != nil {
			d.pending.Fulfill(message.NewErrorResponse(err, id))
			return
		}
		if _, err := d.Route(calleeCtx, *resp); err != nil {
			d.logger.Debug("response not delivered", zap.Int64("id", id), zap.Error(err))
		}
	}()

	select {
	case resp := <-ch:
		return resp, resp.RemoteError()
	case <-ctx.Done():
		d.pending.Cancel(id)
		return message.Message{}, ctx.Err()
	}
}

// Shutdown stops routing, leaves the process group if Join succeeded, waits for
// in-flight requests and fails every pending request with ErrClosed.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	d.closed.Store(true)
	d.mu.Unlock()

	if d.joined.CompareAndSwap(true, false) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := d.registry.Deregister(ctx, d.self.Name); err != nil {
			d.logger.Warn("deregister failed", zap.String("worker", d.self.Name), zap.Error(err))
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
	if n := d.pending.FailAll(ErrClosed); n > 0 {
		d.logger.Info("failed pending requests on shutdown", zap.Int("count", n))
	}
	return err
}

// route is the innermost handler: look up the handler for the request type and
// check what it returns.
func (d *Dispatcher) route(ctx context.Context, req *message.Message) *message.Message {
	d.mu.RLock()
	h, ok := d.handlers[req.Type()]
	d.mu.RUnlock()
	if !ok {
		resp := message.NewExceptionResponse(fmt.Sprintf("no handler for %s", req.Type()), req.ID())
		return &resp
	}

	resp := h(ctx, req)
	if resp == nil {
		exc := message.NewExceptionResponse(fmt.Sprintf("handler for %s returned no response", req.Type()), req.ID())
		return &exc
	}
	if !resp.IsResponse() {
		exc := message.NewExceptionResponse(fmt.Sprintf("handler for %s returned non-response type %s", req.Type(), resp.Type()), req.ID())
		return &exc
	}
	return resp
}

// withID makes resp answer the request with the given id. resp itself is never
// modified, since handlers may return a shared response; a copy carries the id.
func withID(resp *message.Message, id int64) *message.Message {
	if id == message.UnsetID || (resp.HasID() && resp.ID() == id) {
		return resp
	}
	fixed := message.NewWithID(slices.Clone(resp.Payload()), slices.Clone(resp.Blobs()), resp.Type(), id)
	return &fixed
}
