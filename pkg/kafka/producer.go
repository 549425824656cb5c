// Package kafka publishes order events to a broker.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
)

// Publisher sends one message. Key picks the partition, so events of one
// order stay in order.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// NewConfig waits for every in-sync replica and retries five times.
func NewConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = "panaya"
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 5
	c.Producer.Return.Successes = true
	c.Producer.Timeout = 5 * time.Second
	c.Producer.Partitioner = sarama.NewHashPartitioner
	return c
}

type Producer struct {
	sp sarama.SyncProducer
}

func Dial(brokers []string) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka: start producer: %w", err)
	}
	logger.Info("kafka: producer connected", "brokers", brokers)
	return NewProducer(sp), nil
}

// NewProducer wraps an existing producer, such as sarama's mocks.
func NewProducer(sp sarama.SyncProducer) *Producer { return &Producer{sp: sp} }

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now(),
	}
	partition, offset, err := p.sp.SendMessage(msg)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("kafka: send to %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()
	logger.WithCtx(ctx).Debug("kafka: message sent", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

func (p *Producer) Close() error { return p.sp.Close() }
