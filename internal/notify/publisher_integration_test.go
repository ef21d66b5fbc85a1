package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "salesdw.runs.test"

func TestKafkaPublisherIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("salesdw-test"))
	require.NoError(t, err, "Failed to start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: testTopic, NumPartitions: 1, ReplicationFactor: 1}))
	require.NoError(t, conn.Close())

	publisher, err := NewKafkaPublisher(brokers, testTopic, nil)
	require.NoError(t, err)

	event := NewRunCompleted("load", map[string]int64{"sales_fact_table": 6})
	require.NoError(t, publisher.Publish(ctx, event))
	require.NoError(t, publisher.Close())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     testTopic,
		Partition: 0,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = reader.Close() })

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, event.RunID.String(), string(msg.Key))

	var received RunCompleted
	require.NoError(t, json.Unmarshal(msg.Value, &received))
	assert.Equal(t, event.RunID, received.RunID)
	assert.Equal(t, event.RowCounts, received.RowCounts)
	assert.True(t, event.FinishedAt.Equal(received.FinishedAt))
}
