package usecase

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed delay between successive classifier batches
// within one run. The burst of one lets the first dispatch proceed
// immediately; every later dispatch waits out the configured interval.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer builds a pacer with the given inter-batch delay. A
// non-positive delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next batch may be dispatched, honoring context
// cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
