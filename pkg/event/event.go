// Package event is the in-process dispatcher for domain events such as
// order.placed and order.transitioned. Listeners run after the write they
// describe has committed; a failing listener never affects the caller.
package event

import (
	"context"
	"errors"
	"sync"

	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/workerpool"
)

// Handler receives the payload passed to Fire.
type Handler func(ctx context.Context, payload interface{}) error

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pool     *workerpool.Pool
}

// New builds a dispatcher. With a nil pool FireAsync spawns goroutines.
func New(pool *workerpool.Pool) *Dispatcher {
	return &Dispatcher{handlers: map[string][]Handler{}, pool: pool}
}

var std = New(nil)

func Default() *Dispatcher { return std }

// SetDefault replaces the package dispatcher, for bootstrap and tests.
func SetDefault(d *Dispatcher) { std = d }

func Listen(name string, h Handler)                                    { std.Listen(name, h) }
func Fire(ctx context.Context, name string, payload interface{}) error { return std.Fire(ctx, name, payload) }
func FireAsync(ctx context.Context, name string, payload interface{})  { std.FireAsync(ctx, name, payload) }

func (d *Dispatcher) Listen(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

func (d *Dispatcher) listeners(name string) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Handler(nil), d.handlers[name]...)
}

// Fire runs every listener in order and joins their errors.
func (d *Dispatcher) Fire(ctx context.Context, name string, payload interface{}) error {
	var errs []error
	for _, h := range d.listeners(name) {
		if err := call(ctx, h, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FireAsync hands each listener to the pool and returns at once. A full
// pool runs the listener inline so the event is not lost. ctx values are
// kept but its cancellation is not, since the request is usually done by
// the time a listener runs.
func (d *Dispatcher) FireAsync(ctx context.Context, name string, payload interface{}) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range d.listeners(name) {
		h := h
		run := func() {
			if err := call(ctx, h, payload); err != nil {
				logger.WithCtx(ctx).Warn("event: listener failed", "event", name, "error", err)
			}
		}
		if d.pool == nil {
			go run()
			continue
		}
		if err := d.pool.Submit(run); err != nil {
			if !errors.Is(err, workerpool.ErrPoolFull) {
				logger.WithCtx(ctx).Warn("event: pool rejected listener", "event", name, "error", err)
			}
			run()
		}
	}
}

// Flush drops every listener.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = map[string][]Handler{}
}

func call(ctx context.Context, h Handler, payload interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "panic", r)
			err = errors.New("event: listener panicked")
		}
	}()
	return h(ctx, payload)
}
