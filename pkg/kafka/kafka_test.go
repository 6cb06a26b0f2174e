package kafka

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), &ProducerConfig{})
	assert.Error(t, err)
}

func TestNewConsumer_RequiresGroupAndTopics(t *testing.T) {
	_, err := NewConsumer(context.Background(), &ConsumerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}

func TestProduceConsume(t *testing.T) {
	brokers := os.Getenv("TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("TEST_KAFKA_BROKERS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "eventhub-test-" + uuid.NewString()[:8]
	p, err := NewProducer(ctx, &ProducerConfig{Brokers: strings.Split(brokers, ","), ClientID: "test"})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.ProduceJSON(ctx, topic, "k1", map[string]string{"hello": "world"}, nil))

	c, err := NewConsumer(ctx, &ConsumerConfig{
		Brokers: strings.Split(brokers, ","),
		GroupID: "eventhub-test-" + uuid.NewString()[:8],
		Topics:  []string{topic},
	})
	require.NoError(t, err)
	defer c.Close()

	records, err := c.Poll(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "k1", string(records[0].Key))
	assert.Equal(t, "application/json", records[0].Headers["content_type"])
	assert.JSONEq(t, `{"hello":"world"}`, string(records[0].Value))
	require.NoError(t, c.CommitRecords(ctx, records))
}
