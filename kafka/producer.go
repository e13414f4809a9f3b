package kafka

import (
	"context"
	"encoding/json"
	"time"

	"pickup-service/models"

	"github.com/segmentio/kafka-go"
)

// ProducerAPI is the event-bus surface the service depends on, mockable in
// tests.
type ProducerAPI interface {
	PublishPickupEvent(ctx context.Context, event models.PickupEvent) error
	Close() error
}

// Producer publishes pickup lifecycle events to Kafka.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a Producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishPickupEvent sends one lifecycle event, keyed by marketer so a
// marketer's events stay ordered within a partition.
func (p *Producer) PublishPickupEvent(ctx context.Context, event models.PickupEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Pickup.MarketerID),
		Value: data,
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
