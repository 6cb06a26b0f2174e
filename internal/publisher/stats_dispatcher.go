package publisher

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
	"github.com/prohmpiriya/eventhub/pkg/logger"
)

// DefaultStatsTopic carries maintainer jobs to cmd/stats-worker
const DefaultStatsTopic = "eventhub.stats-jobs"

// KafkaStatsDispatcher hands statistics jobs to the stats worker through Kafka
type KafkaStatsDispatcher struct {
	producer Producer
	topic    string
	log      *logger.Logger
}

// NewKafkaStatsDispatcher creates a dispatcher producing to topic
func NewKafkaStatsDispatcher(producer Producer, topic string) *KafkaStatsDispatcher {
	if topic == "" {
		topic = DefaultStatsTopic
	}
	return &KafkaStatsDispatcher{
		producer: producer,
		topic:    topic,
		log:      logger.Get().With(zap.String("component", "stats_dispatcher")),
	}
}

// Dispatch produces each job keyed by its target. Failures are logged; the triggering write stands.
func (d *KafkaStatsDispatcher) Dispatch(ctx context.Context, jobs ...domain.StatsJob) {
	ctx = context.WithoutCancel(ctx)
	for _, job := range jobs {
		value, err := json.Marshal(job)
		if err != nil {
			d.log.Error("failed to marshal stats job", zap.String("job", job.String()), zap.Error(err))
			continue
		}
		msg := &kafka.Message{
			Topic:   d.topic,
			Key:     []byte(job.TargetID),
			Value:   value,
			Headers: map[string]string{"job_kind": string(job.Kind), "content_type": "application/json"},
		}
		if err := d.producer.Produce(ctx, msg); err != nil {
			d.log.Warn("failed to dispatch stats job", zap.String("job", job.String()), zap.Error(err))
		}
	}
}
