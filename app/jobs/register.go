package jobs

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/pkg/kafka"
	"github.com/shashiranjanraj/panaya/pkg/queue"
)

type Options struct {
	DB         *gorm.DB
	WebhookURL string
	// Publisher is nil when no brokers are configured; the publish job is
	// then left unregistered.
	Publisher kafka.Publisher
	Topic     string
}

// Register makes the job types decodable by m.
func Register(m *queue.Manager, o Options) {
	m.Register(NotifyCustomerName, func() queue.Job {
		return &NotifyCustomerJob{db: o.DB, webhook: o.WebhookURL}
	})
	if o.Publisher != nil {
		m.Register(PublishOrderEventName, func() queue.Job {
			return &PublishOrderEventJob{publisher: o.Publisher, topic: o.Topic}
		})
	}
}
