package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/publisher"
	"github.com/prohmpiriya/eventhub/pkg/logger"
)

// Notifier runs the after-commit side effects of a write: statistics jobs and domain events.
// Neither can fail the write that triggered it.
type Notifier struct {
	dispatcher StatsDispatcher
	publisher  publisher.Publisher
	log        *logger.Logger
}

// NewNotifier creates a Notifier. Nil arguments disable the matching side effect.
func NewNotifier(dispatcher StatsDispatcher, pub publisher.Publisher) *Notifier {
	if pub == nil {
		pub = publisher.NewNoOpPublisher()
	}
	return &Notifier{
		dispatcher: dispatcher,
		publisher:  pub,
		log:        logger.Get().With(zap.String("component", "notifier")),
	}
}

// Stats dispatches maintainer jobs, skipping malformed ones
func (n *Notifier) Stats(ctx context.Context, jobs ...domain.StatsJob) {
	if n == nil || n.dispatcher == nil {
		return
	}
	valid := jobs[:0:0]
	for _, j := range jobs {
		if j.Valid() {
			valid = append(valid, j)
		}
	}
	if len(valid) > 0 {
		n.dispatcher.Dispatch(ctx, valid...)
	}
}

// Publish emits a domain event and logs a failure
func (n *Notifier) Publish(ctx context.Context, event *domain.DomainEvent) {
	if n == nil {
		return
	}
	if err := n.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		n.log.Warn("failed to publish domain event",
			zap.String("event_type", string(event.Type)),
			zap.String("aggregate_id", event.AggregateID),
			zap.Error(err),
		)
	}
}

// venueJobs returns hosting-stats jobs for each distinct non-empty venue id
func venueJobs(ids ...*string) []domain.StatsJob {
	var jobs []domain.StatsJob
	seen := map[string]bool{}
	for _, id := range ids {
		if id == nil || *id == "" || seen[*id] {
			continue
		}
		seen[*id] = true
		jobs = append(jobs, domain.StatsJob{Kind: domain.JobVenueHostingStats, TargetID: *id})
	}
	return jobs
}
