package service

import (
	"context"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// InlineDispatcher applies jobs synchronously after the write returns
type InlineDispatcher struct {
	maintainer StatsMaintainer
}

// NewInlineDispatcher creates a dispatcher that runs the maintainer in the caller's goroutine
func NewInlineDispatcher(maintainer StatsMaintainer) *InlineDispatcher {
	return &InlineDispatcher{maintainer: maintainer}
}

// Dispatch detaches from the request's cancellation so a client hang-up does not skip a recompute
func (d *InlineDispatcher) Dispatch(ctx context.Context, jobs ...domain.StatsJob) {
	d.maintainer.Handle(context.WithoutCancel(ctx), jobs...)
}
