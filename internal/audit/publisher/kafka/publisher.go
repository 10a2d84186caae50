// Package kafka produces attempt records to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"kycgate/internal/audit/models"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher writes each attempt as JSON keyed by attempt ID so all copies of
// one attempt land on the same partition.
type Publisher struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, attempts ...models.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(attempts))
	for _, a := range attempts {
		value, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode attempt %s: %w", a.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(a.ID),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "attempt_type", Value: []byte(a.Type)},
				{Key: "status", Value: []byte(a.Status)},
			},
		})
	}

	var errs []error
	for _, res := range p.producer.ProduceSync(ctx, records...) {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("produce %d of %d attempts failed: %w", len(errs), len(records), errors.Join(errs...))
	}
	return nil
}
