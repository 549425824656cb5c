// Package workerpool bounds the goroutines used for fire-and-forget work
// such as event listeners. It sits on an ants pool.
//
//	pool := workerpool.New(16)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(task); errors.Is(err, workerpool.ErrPoolFull) {
//	    task() // run inline instead
//	}
package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/shashiranjanraj/panaya/pkg/logger"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

type Pool struct {
	p      *ants.Pool
	wg     sync.WaitGroup
	closed atomic.Bool
	panics atomic.Int64
}

// New returns a non-blocking pool of size workers. A panicking task is
// logged and does not take its worker down.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	wp := &Pool{}
	p, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(10*time.Second),
		ants.WithPanicHandler(func(r interface{}) {
			wp.panics.Add(1)
			logger.Error("workerpool: task panicked", "panic", r)
		}),
	)
	if err != nil {
		// only reachable with invalid options
		panic(err)
	}
	wp.p = p
	return wp
}

// Submit runs task on a free worker or fails fast with ErrPoolFull.
func (wp *Pool) Submit(task func()) error {
	if wp.closed.Load() {
		return ErrPoolClosed
	}
	wp.wg.Add(1)
	err := wp.p.Submit(func() {
		defer wp.wg.Done()
		task()
	})
	if err == nil {
		return nil
	}
	wp.wg.Done()
	switch {
	case errors.Is(err, ants.ErrPoolOverload):
		return ErrPoolFull
	case errors.Is(err, ants.ErrPoolClosed):
		return ErrPoolClosed
	}
	return err
}

// SubmitWait retries Submit until a worker frees up or the pool closes.
func (wp *Pool) SubmitWait(task func()) error {
	wait := 100 * time.Microsecond
	for {
		err := wp.Submit(task)
		if !errors.Is(err, ErrPoolFull) {
			return err
		}
		time.Sleep(wait)
		if wait < 10*time.Millisecond {
			wait *= 2
		}
	}
}

func (wp *Pool) Running() int { return wp.p.Running() }
func (wp *Pool) Cap() int     { return wp.p.Cap() }

// Panics counts tasks that panicked.
func (wp *Pool) Panics() int64 { return wp.panics.Load() }

// Shutdown stops accepting tasks, waits for running ones and frees the
// workers. Safe to call more than once.
func (wp *Pool) Shutdown() {
	if wp.closed.Swap(true) {
		return
	}
	wp.wg.Wait()
	wp.p.Release()
}
