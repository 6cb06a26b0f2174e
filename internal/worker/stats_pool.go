package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/pkg/logger"
)

// StatsPoolConfig holds configuration for the in-process stats pool
type StatsPoolConfig struct {
	Workers   int
	QueueSize int
}

// StatsPool applies maintainer jobs on a bounded set of goroutines fed by a channel.
// A full queue drops the job with a warning; the next write or a resync repairs it.
type StatsPool struct {
	config     StatsPoolConfig
	maintainer service.StatsMaintainer
	log        *logger.Logger

	jobs    chan domain.StatsJob
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewStatsPool creates a pool. Call Start before dispatching.
func NewStatsPool(cfg StatsPoolConfig, maintainer service.StatsMaintainer) *StatsPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	return &StatsPool{
		config:     cfg,
		maintainer: maintainer,
		log:        logger.Get().With(zap.String("component", "stats_pool")),
		jobs:       make(chan domain.StatsJob, cfg.QueueSize),
	}
}

// Start launches the workers. They drain the queue and exit after Stop.
func (p *StatsPool) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.maintainer.Handle(ctx, job)
			}
		}()
	}
	p.log.Info("stats pool started", zap.Int("workers", p.config.Workers), zap.Int("queue_size", p.config.QueueSize))
}

// Dispatch enqueues without blocking
func (p *StatsPool) Dispatch(ctx context.Context, jobs ...domain.StatsJob) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("stats pool stopped, dropping jobs", zap.Int("count", len(jobs)))
		return
	}
	for _, job := range jobs {
		select {
		case p.jobs <- job:
		default:
			p.dropped.Add(1)
			p.log.Warn("stats queue full, dropping job", zap.String("job", job.String()))
		}
	}
}

// Dropped reports how many jobs were discarded because the queue was full
func (p *StatsPool) Dropped() int64 {
	return p.dropped.Load()
}

// Stop closes the queue and waits for queued jobs to finish or ctx to end
func (p *StatsPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
