//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"kycgate/internal/audit/models"
	auditkafka "kycgate/internal/audit/publisher/kafka"
	platformkafka "kycgate/internal/platform/kafka"
	"kycgate/pkg/testutil/containers"
)

func TestPublisherRoundTripThroughBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "kyc.attempts.test"
	producer, err := platformkafka.NewProducer(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	defer producer.Close()

	pub := auditkafka.New(producer, topic)
	require.NoError(t, pub.Publish(ctx, models.Attempt{
		ID: "att-1", Timestamp: time.Now().UTC(), Type: models.AttemptVerify, Status: "approved",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollRecords(ctx, 1)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	var got models.Attempt
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, "att-1", got.ID)
	require.Equal(t, "att-1", string(records[0].Key))
}
