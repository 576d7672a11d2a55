package events

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/xenking/flowershop/internal/domain/order"
)

var _ order.Publisher = (*Kafka)(nil)

// Producer is the subset of *kgo.Client used by Kafka.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Kafka publishes order events to a Kafka topic, keyed by order id so all
// events of one order land on the same partition.
type Kafka struct {
	producer Producer
	topic    string
}

// NewKafka connects a franz-go client to brokers.
func NewKafka(brokers []string, topic string, opts ...kgo.Opt) (*Kafka, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}, opts...)

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka client")
	}
	return NewKafkaWithProducer(cl, topic), nil
}

// NewKafkaWithProducer wraps an existing producer.
func NewKafkaWithProducer(p Producer, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{producer: p, topic: topic}
}

// OrderPlaced synchronously produces the order.placed event.
func (k *Kafka) OrderPlaced(ctx context.Context, o order.Order) error {
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(o.ID),
		Value: EncodeOrderPlaced(o),
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(TypeOrderPlaced)},
		},
	}
	if err := k.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return errors.Wrapf(err, "produce %s", TypeOrderPlaced)
	}
	return nil
}

// Close flushes and closes the client.
func (k *Kafka) Close() {
	k.producer.Close()
}
