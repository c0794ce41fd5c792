package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes events as JSON records keyed by event id.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects a producer to brokers.
func NewKafkaSink(brokers []string, topic string, opts ...kgo.Opt) (*KafkaSink, error) {
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

// Append produces the event and waits for the broker acknowledgement.
func (k *KafkaSink) Append(ctx context.Context, event Event) error {
	record, err := newRecord(k.topic, event)
	if err != nil {
		return err
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// EnsureTopic creates the audit topic with the broker's default replication
// factor. An existing topic is left untouched.
func (k *KafkaSink) EnsureTopic(ctx context.Context, partitions int32) error {
	resp, err := kadm.NewClient(k.client).CreateTopics(ctx, partitions, -1, nil, k.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Health checks broker connectivity.
func (k *KafkaSink) Health(ctx context.Context) error {
	return k.Ping(ctx)
}

// Ping checks broker connectivity.
func (k *KafkaSink) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

// Close flushes pending records and closes the client.
func (k *KafkaSink) Close(ctx context.Context) error {
	err := k.client.Flush(ctx)
	k.client.Close()
	return err
}

func newRecord(topic string, event Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.ID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}, nil
}
