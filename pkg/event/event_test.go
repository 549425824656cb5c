package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/panaya/pkg/workerpool"
)

func TestFireRunsListenersInOrder(t *testing.T) {
	d := New(nil)
	var got []int
	d.Listen("order.placed", func(context.Context, interface{}) error { got = append(got, 1); return nil })
	d.Listen("order.placed", func(context.Context, interface{}) error { got = append(got, 2); return errors.New("mail down") })
	d.Listen("order.placed", func(context.Context, interface{}) error { got = append(got, 3); return nil })

	err := d.Fire(context.Background(), "order.placed", 42)
	assert.EqualError(t, err, "mail down")
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestFireRecoversPanics(t *testing.T) {
	d := New(nil)
	d.Listen("x", func(context.Context, interface{}) error { panic("boom") })
	assert.Error(t, d.Fire(context.Background(), "x", nil))
}

func TestFireAsyncUsesPool(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()
	d := New(pool)

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		d.Listen("order.transitioned", func(ctx context.Context, p interface{}) error {
			defer wg.Done()
			assert.NoError(t, ctx.Err())
			assert.Equal(t, "payload", p)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.FireAsync(ctx, "order.transitioned", "payload")
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listeners did not run")
	}
}

func TestFlush(t *testing.T) {
	d := New(nil)
	d.Listen("x", func(context.Context, interface{}) error { return errors.New("nope") })
	d.Flush()
	assert.NoError(t, d.Fire(context.Background(), "x", nil))
}
