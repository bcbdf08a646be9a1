// Package sweep periodically re-runs classification for low-confidence
// enrichments so fresh human corrections improve past results without
// waiting for a ticket to change.
package sweep

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/robfig/cron/v3"
)

// Reclassifier is the slice of the enrichment service the sweep drives.
type Reclassifier interface {
	ReclassifyLowConfidence(ctx context.Context, since time.Time, limit int) (int, error)
}

// Sweeper owns the cron schedule for the reclassification job.
type Sweeper struct {
	svc    Reclassifier
	logger log.Logger
	window time.Duration
	batch  int
	cron   *cron.Cron
	now    func() time.Time
}

// New creates a Sweeper. window bounds how far back low-confidence records
// are considered; batch caps work per run.
func New(svc Reclassifier, logger log.Logger, window time.Duration, batch int) *Sweeper {
	if logger == nil {
		logger = log.Nop()
	}
	return &Sweeper{
		svc:    svc,
		logger: logger,
		window: window,
		batch:  batch,
		now:    time.Now,
	}
}

// Start schedules the sweep. schedule is a cron spec ("@every 10m");
// an empty schedule disables the sweep and Start returns nil.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		s.logger.Info(ctx, "reclassification sweep disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.run(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info(ctx, "reclassification sweep scheduled",
		"schedule", schedule,
		"window", s.window.String(),
		"batch", s.batch,
	)
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run(ctx context.Context) {
	since := s.now().Add(-s.window)
	start := s.now()

	updated, err := s.svc.ReclassifyLowConfidence(ctx, since, s.batch)
	if err != nil {
		s.logger.Error(ctx, err, "reclassification sweep failed", "updated", updated)
		return
	}
	if updated > 0 {
		s.logger.Info(ctx, "reclassification sweep complete",
			"updated", updated,
			"duration", s.now().Sub(start).Seconds(),
		)
	}
}
