package listeners

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/panaya/app/jobs"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/event"
	"github.com/shashiranjanraj/panaya/pkg/queue"
	"github.com/shashiranjanraj/panaya/pkg/sse"
)

func placed(id uint) services.OrderEvent {
	return services.OrderEvent{Type: services.EventOrderPlaced, OrderID: id, UserID: 3, To: services.Statuses{Order: models.OrderPendingPayment}}
}

func TestOrderEventsReachTheStream(t *testing.T) {
	d := event.New(nil)
	b := sse.NewBroker()
	Register(d, Options{Broker: b})

	ch, cancel := b.Subscribe(OrderTopic(9))
	defer cancel()

	require.NoError(t, d.Fire(context.Background(), services.EventOrderPlaced, placed(9)))
	select {
	case ev := <-ch:
		assert.Equal(t, services.EventOrderPlaced, ev.Name)
		assert.Equal(t, uint(9), ev.Data.(services.OrderEvent).OrderID)
	case <-time.After(time.Second):
		t.Fatal("no event on the order stream")
	}

	require.NoError(t, d.Fire(context.Background(), services.EventOrderPlaced, placed(10)))
	assert.Empty(t, ch)
}

func TestOrderEventsAreQueued(t *testing.T) {
	d := event.New(nil)
	driver := queue.NewMemoryDriver(8)
	m := queue.NewManager(driver)
	jobs.Register(m, jobs.Options{})
	Register(d, Options{Queue: m})

	require.NoError(t, d.Fire(context.Background(), services.EventOrderTransitioned, placed(4)))
	// notify only; no broker configured
	assert.Equal(t, 1, driver.Len())
}

func TestUnexpectedPayloadIsAnError(t *testing.T) {
	d := event.New(nil)
	Register(d, Options{})
	assert.ErrorContains(t, d.Fire(context.Background(), services.EventOrderPlaced, "nope"), "unexpected payload")
}

func TestOrderTopic(t *testing.T) {
	assert.Equal(t, "orders.12", OrderTopic(12))
}
