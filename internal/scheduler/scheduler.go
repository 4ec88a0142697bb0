// Package scheduler hosts the daily background jobs: the recurring
// transaction materializer and the budget alert scan.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/finbook-ledger/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	cfg    *config.SchedulerConfig
	logger *slog.Logger
}

// New creates a scheduler with panic recovery around every job.
func New(jobs *Jobs, cfg *config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.cfg.MaterializerSchedule, s.jobs.MaterializeRecurring); err != nil {
		s.logger.Error("failed to schedule recurring materializer job", "error", err)
	} else {
		s.logger.Info("scheduled recurring materializer job", "schedule", s.cfg.MaterializerSchedule)
	}

	if _, err := s.cron.AddFunc(s.cfg.BudgetAlertSchedule, s.jobs.ScanBudgetAlerts); err != nil {
		s.logger.Error("failed to schedule budget alert job", "error", err)
	} else {
		s.logger.Info("scheduled budget alert job", "schedule", s.cfg.BudgetAlertSchedule)
	}

	s.cron.Start()
}

// Stop stops the cron loop and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
