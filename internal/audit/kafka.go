package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaMirror publishes audit events to a Kafka topic for downstream
// compliance consumers. It is a Mirror: delivery failures are logged by the
// worker and never affect the stored record.
type KafkaMirror struct {
	client *kgo.Client
	topic  string
}

func NewKafkaMirror(brokers []string, topic string) (*KafkaMirror, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaMirror{client: client, topic: topic}, nil
}

func (m *KafkaMirror) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: m.topic,
		Key:   []byte(event.ActorID),
		Value: payload,
	}
	// Synchronous produce: the worker is already off the request path, so
	// waiting for the ack here costs nothing user-visible.
	if err := m.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (m *KafkaMirror) Close() {
	m.client.Close()
}
