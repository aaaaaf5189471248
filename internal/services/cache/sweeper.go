package cache

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/interfaces"
)

// Sweeper periodically removes entries older than maxAge. Reads already
// ignore expired entries; the sweep only bounds storage growth.
type Sweeper struct {
	storage interfaces.CacheStorage
	logger  arbor.ILogger
	maxAge  time.Duration
	cron    *cron.Cron
	now     func() time.Time
}

// NewSweeper creates a sweeper; call Start to schedule it
func NewSweeper(storage interfaces.CacheStorage, logger arbor.ILogger, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		storage: storage,
		logger:  logger,
		maxAge:  maxAge,
		cron:    cron.New(cron.WithSeconds()),
		now:     time.Now,
	}
}

// Start schedules the sweep with a six-field cron expression
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()

	s.logger.Info().Str("schedule", schedule).Dur("max_age", s.maxAge).Msg("Cache sweeper started")
	return nil
}

// Sweep removes expired entries once; failures are logged only
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.maxAge)
	removed, err := s.storage.DeleteStoredBefore(ctx, cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Cache sweep failed")
		return removed
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Str("cutoff", cutoff.Format(time.RFC3339)).Msg("Cache sweep completed")
	}
	return removed
}

// Stop stops the schedule and waits for a running sweep
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
