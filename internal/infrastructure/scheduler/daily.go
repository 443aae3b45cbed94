package scheduler

import (
	"context"
	"log/slog"
	"time"

	"FeedCurator/internal/ports"
)

// Daily fires a job once per day at a fixed local wall-clock time.
type Daily struct {
	hour   int
	minute int
	loc    *time.Location
	stop   chan struct{}
	logger *slog.Logger
}

var _ ports.Scheduler = (*Daily)(nil)

// NewDaily builds a scheduler for the given local time of day.
func NewDaily(hour, minute int, loc *time.Location, logger *slog.Logger) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{hour: hour, minute: minute, loc: loc, logger: logger}
}

// Start launches the trigger loop. Each iteration sleeps until the next
// local occurrence of the configured time, then invokes the job.
func (d *Daily) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || d.stop != nil {
		return nil
	}

	d.stop = make(chan struct{})
	stop := d.stop
	go func() {
		for {
			next := nextRun(time.Now().In(d.loc), d.hour, d.minute)
			if d.logger != nil {
				d.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))
			}

			timer := time.NewTimer(time.Until(next))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger loop.
func (d *Daily) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}

// nextRun returns the next occurrence of hour:minute strictly after now,
// in now's location.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
