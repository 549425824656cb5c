// Package listeners reacts to committed order events: it queues the
// customer notice and the broker publish, and pushes the event to the live
// feeds.
package listeners

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/panaya/app/jobs"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/event"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/queue"
	"github.com/shashiranjanraj/panaya/pkg/sse"
	"github.com/shashiranjanraj/panaya/pkg/ws"
)

type Options struct {
	Queue  *queue.Manager
	Hub    *ws.Hub
	Broker *sse.Broker
}

// OrderTopic is the SSE topic of one order.
func OrderTopic(orderID uint) string { return fmt.Sprintf("orders.%d", orderID) }

// Register subscribes the order listeners on d.
func Register(d *event.Dispatcher, o Options) {
	for _, name := range []string{services.EventOrderPlaced, services.EventOrderTransitioned} {
		d.Listen(name, logEvent)
		if o.Queue != nil {
			d.Listen(name, enqueue(o.Queue))
		}
		if o.Hub != nil {
			d.Listen(name, func(_ context.Context, p interface{}) error { return o.Hub.Publish(p) })
		}
		if o.Broker != nil {
			d.Listen(name, stream(o.Broker))
		}
	}
}

func payload(p interface{}) (services.OrderEvent, error) {
	ev, ok := p.(services.OrderEvent)
	if !ok {
		return ev, fmt.Errorf("listeners: unexpected payload %T", p)
	}
	return ev, nil
}

func logEvent(ctx context.Context, p interface{}) error {
	ev, err := payload(p)
	if err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("order event", "type", ev.Type, "order_id", ev.OrderID, "action", ev.Action, "status", ev.To.Order)
	return nil
}

func enqueue(m *queue.Manager) event.Handler {
	return func(ctx context.Context, p interface{}) error {
		ev, err := payload(p)
		if err != nil {
			return err
		}
		if err := m.Dispatch(&jobs.NotifyCustomerJob{Event: ev}); err != nil {
			return err
		}
		if !m.Registered(jobs.PublishOrderEventName) {
			return nil
		}
		return m.Dispatch(&jobs.PublishOrderEventJob{Event: ev})
	}
}

func stream(b *sse.Broker) event.Handler {
	return func(_ context.Context, p interface{}) error {
		ev, err := payload(p)
		if err != nil {
			return err
		}
		b.Publish(OrderTopic(ev.OrderID), sse.Event{Name: ev.Type, Data: ev})
		return nil
	}
}
