package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	a, cancelA := b.Subscribe("order:1")
	c, cancelC := b.Subscribe("order:1")
	_, cancelOther := b.Subscribe("order:2")
	defer cancelOther()

	assert.Equal(t, 2, b.Publish("order:1", Event{Name: "order.transitioned", Data: 1}))
	assert.Equal(t, "order.transitioned", (<-a).Name)
	assert.Equal(t, "order.transitioned", (<-c).Name)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers("order:1"))

	cancelC()
	assert.Equal(t, 0, b.Publish("order:1", Event{}))
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	_, cancel := b.Subscribe("t")
	defer cancel()
	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, b.Publish("t", Event{}))
	}
	assert.Equal(t, 0, b.Publish("t", Event{}))
}

func TestStreamWritesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/api/orders/1/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	s := New(w, r)
	require.NotNil(t, s)
	require.NoError(t, s.Send("order.transitioned", map[string]int{"order_id": 1}))
	s.Comment("ping")

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: order.transitioned\ndata: {\"order_id\":1}\n\n")
	assert.Contains(t, w.Body.String(), ": ping\n\n")

	cancel()
	time.Sleep(time.Millisecond)
	assert.True(t, s.IsClosed())
}
