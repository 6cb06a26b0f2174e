package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/repository"
	"github.com/prohmpiriya/eventhub/pkg/logger"
	"github.com/prohmpiriya/eventhub/pkg/telemetry"
)

const defaultResyncConcurrency = 8

// statsMaintainer implements StatsMaintainer
type statsMaintainer struct {
	stats       repository.StatsRepository
	cache       CacheInvalidator
	clock       clock.Clock
	log         *logger.Logger
	concurrency int
}

// NewStatsMaintainer creates a StatsMaintainer. cache may be nil when events are not cached.
func NewStatsMaintainer(stats repository.StatsRepository, cache CacheInvalidator, clk clock.Clock, concurrency int) StatsMaintainer {
	if concurrency <= 0 {
		concurrency = defaultResyncConcurrency
	}
	return &statsMaintainer{
		stats:       stats,
		cache:       cache,
		clock:       clk,
		log:         logger.Get().With(zap.String("component", "stats_maintainer")),
		concurrency: concurrency,
	}
}

// Apply recomputes the fields named by job from their source rows
func (m *statsMaintainer) Apply(ctx context.Context, job domain.StatsJob) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "stats."+string(job.Kind))
	defer func() { telemetry.EndSpan(span, err) }()

	if !job.Valid() {
		return fmt.Errorf("invalid stats job %q", job.String())
	}
	now := m.clock.Now()

	switch job.Kind {
	case domain.JobVenueSnapshot:
		ids, err := m.stats.RefreshVenueSnapshot(ctx, job.TargetID, now)
		if err != nil {
			return err
		}
		m.invalidate(ctx, ids...)
	case domain.JobEventReviewStats:
		if err := m.stats.RecomputeEventReviewStats(ctx, job.TargetID, now); err != nil {
			return err
		}
		m.invalidate(ctx, job.TargetID)
	case domain.JobVenueReviewStats:
		return m.stats.RecomputeVenueReviewStats(ctx, job.TargetID, now)
	case domain.JobEventAttendance:
		if err := m.stats.RecomputeEventAttendance(ctx, job.TargetID, now); err != nil {
			return err
		}
		m.invalidate(ctx, job.TargetID)
	case domain.JobVenueHostingStats:
		return m.stats.RecomputeVenueHostingStats(ctx, job.TargetID, now)
	}
	return nil
}

// Handle applies each job and logs failures. It never returns an error to the writer.
func (m *statsMaintainer) Handle(ctx context.Context, jobs ...domain.StatsJob) {
	for _, job := range jobs {
		if err := m.Apply(ctx, job); err != nil {
			m.logFailure(job, err)
		}
	}
}

// RecomputeAll refreshes every live event and venue with bounded concurrency.
// Individual failures are logged and counted; the walk continues past them.
func (m *statsMaintainer) RecomputeAll(ctx context.Context) error {
	eventIDs, err := m.stats.ListEventIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	venueIDs, err := m.stats.ListVenueIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list venues: %w", err)
	}

	var jobs []domain.StatsJob
	for _, id := range venueIDs {
		jobs = append(jobs,
			domain.StatsJob{Kind: domain.JobVenueSnapshot, TargetID: id},
			domain.StatsJob{Kind: domain.JobVenueReviewStats, TargetID: id},
			domain.StatsJob{Kind: domain.JobVenueHostingStats, TargetID: id},
		)
	}
	for _, id := range eventIDs {
		jobs = append(jobs,
			domain.StatsJob{Kind: domain.JobEventReviewStats, TargetID: id},
			domain.StatsJob{Kind: domain.JobEventAttendance, TargetID: id},
		)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := m.Apply(gctx, job); err != nil {
				failed.Add(1)
				m.logFailure(job, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.log.Info("stats resync finished",
		zap.Int("events", len(eventIDs)),
		zap.Int("venues", len(venueIDs)),
		zap.Int64("failed", failed.Load()),
	)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d stats jobs failed", n, len(jobs))
	}
	return nil
}

func (m *statsMaintainer) invalidate(ctx context.Context, ids ...string) {
	if m.cache != nil && len(ids) > 0 {
		m.cache.Invalidate(ctx, ids...)
	}
}

// logFailure keeps vanished targets at debug level; they are expected after deletes
func (m *statsMaintainer) logFailure(job domain.StatsJob, err error) {
	if domain.IsNotFoundError(err) {
		m.log.Debug("stats target no longer exists", zap.String("job", job.String()))
		return
	}
	m.log.Error("stats recompute failed", zap.String("job", job.String()), zap.Error(err))
}
