// Package publisher ships reconciliation records to the operators' topic.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"ticketflow/internal/reconciliation"
	"ticketflow/pkg/email"
)

// KafkaPublisher produces one message per record, keyed by the case-folded
// email so all
// records for a participant land on the same partition in order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafka(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

// Publish produces records synchronously and returns the first failure.
func (p *KafkaPublisher) Publish(ctx context.Context, records []reconciliation.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]*kgo.Record, 0, len(records))
	for _, rec := range records {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}
		msgs = append(msgs, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(email.Key(rec.Email)),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "operation", Value: []byte(rec.Operation)},
				{Key: "record_id", Value: []byte(rec.ID.String())},
			},
		})
	}
	if err := p.client.ProduceSync(ctx, msgs...).FirstErr(); err != nil {
		return fmt.Errorf("produce reconciliation records: %w", err)
	}
	return nil
}

// Ping checks broker reachability.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
