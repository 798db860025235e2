package scheduler

import (
	"context"

	"fanarena/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the sweeper on its two cadences
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	log     *logger.Logger
}

// NewScheduler creates the cron wiring around a sweeper
func NewScheduler(sweeper *Sweeper, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		log:     log,
	}
}

// Start registers the sweep entries and starts the cron loop. The hourly
// entry fires at minute 0; the ten-minute entry at every tenth minute.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		s.sweeper.RunHourly(ctx)
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("*/10 * * * *", func() {
		s.sweeper.RunTenMinute(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Competition scheduler started")
	return nil
}

// Stop shuts the cron loop down, waiting for a running sweep to finish
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Competition scheduler stopped")
}
