package jobs

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/kafka"
)

const PublishOrderEventName = "publish_order_event"

// PublishOrderEventJob sends the event to the broker keyed by order id.
type PublishOrderEventJob struct {
	Event services.OrderEvent `json:"event"`

	publisher kafka.Publisher
	topic     string
}

func (PublishOrderEventJob) Name() string { return PublishOrderEventName }

func (j *PublishOrderEventJob) Handle(ctx context.Context) error {
	value, err := json.Marshal(j.Event)
	if err != nil {
		return err
	}
	return j.publisher.Publish(ctx, j.topic, strconv.FormatUint(uint64(j.Event.OrderID), 10), value)
}
