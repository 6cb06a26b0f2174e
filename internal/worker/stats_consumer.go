package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/publisher"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/retry"
)

// RecordSource is the subset of *kafka.Consumer the stats consumer needs
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
}

// StatsConsumerConfig holds configuration for the Kafka stats consumer
type StatsConsumerConfig struct {
	// Retry bounds the attempts per job before it is dead-lettered
	Retry *retry.Config
	// PollBackoff is the pause after a failed poll
	PollBackoff time.Duration
}

// StatsConsumer applies maintainer jobs read from Kafka. Jobs that keep failing
// are parked on the dead-letter topic so the partition keeps moving.
type StatsConsumer struct {
	source     RecordSource
	maintainer service.StatsMaintainer
	handler    *retry.DeadLetterHandler
	config     StatsConsumerConfig
	log        *logger.Logger
}

// NewStatsConsumer creates a consumer. A nil sink drops exhausted jobs after logging.
func NewStatsConsumer(cfg StatsConsumerConfig, source RecordSource, maintainer service.StatsMaintainer, sink retry.DeadLetterSink) *StatsConsumer {
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.PollBackoff <= 0 {
		cfg.PollBackoff = time.Second
	}
	return &StatsConsumer{
		source:     source,
		maintainer: maintainer,
		handler:    retry.NewDeadLetterHandler(cfg.Retry, sink, "stats-worker"),
		config:     cfg,
		log:        logger.Get().With(zap.String("component", "stats_consumer")),
	}
}

// Run polls until ctx ends
func (c *StatsConsumer) Run(ctx context.Context) error {
	c.log.Info("stats consumer started")
	for {
		records, err := c.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("stats consumer stopped")
				return nil
			}
			c.log.Error("failed to poll kafka", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.config.PollBackoff):
			}
			continue
		}
		if len(records) == 0 {
			continue
		}

		c.ProcessRecords(ctx, records)
		if err := c.source.CommitRecords(ctx, records); err != nil {
			c.log.Error("failed to commit offsets", zap.Error(err))
		}
	}
}

// ProcessRecords applies each record's job. Errors are logged; nothing blocks the batch.
func (c *StatsConsumer) ProcessRecords(ctx context.Context, records []*kafka.Record) {
	for _, record := range records {
		if err := c.processRecord(ctx, record); err != nil {
			c.log.Warn("stats job failed",
				zap.String("topic", record.Topic),
				zap.Int64("offset", record.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *StatsConsumer) processRecord(ctx context.Context, record *kafka.Record) error {
	var job domain.StatsJob
	if err := json.Unmarshal(record.Value, &job); err != nil {
		return fmt.Errorf("failed to unmarshal stats job: %w", err)
	}
	if !job.Valid() {
		return fmt.Errorf("invalid stats job %q", job.String())
	}

	env := &retry.Envelope{
		ID:      fmt.Sprintf("%s-%d-%d", record.Topic, record.Partition, record.Offset),
		Topic:   record.Topic,
		Key:     string(record.Key),
		Payload: record.Value,
		Headers: record.Headers,
	}
	return c.handler.Process(ctx, env, func(ctx context.Context) error {
		// a deleted target has nothing left to recompute
		if err := c.maintainer.Apply(ctx, job); err != nil && !domain.IsNotFoundError(err) {
			return err
		}
		return nil
	})
}

// KafkaDeadLetterSink produces exhausted messages to <topic>.dlq
type KafkaDeadLetterSink struct {
	producer publisher.Producer
}

func NewKafkaDeadLetterSink(producer publisher.Producer) *KafkaDeadLetterSink {
	return &KafkaDeadLetterSink{producer: producer}
}

func (s *KafkaDeadLetterSink) Send(ctx context.Context, msg *retry.DeadLetter) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	return s.producer.Produce(ctx, &kafka.Message{
		Topic:   retry.DeadLetterTopic(msg.OriginalTopic),
		Key:     []byte(msg.OriginalKey),
		Value:   value,
		Headers: map[string]string{"source": msg.Source, "content_type": "application/json"},
	})
}
