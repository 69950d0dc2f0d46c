package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/toolbelt-cli/toolbelt/internal/config"
	"github.com/toolbelt-cli/toolbelt/internal/processor"
)

// QueryRunner processes one query. Implemented by processor.Processor.
type QueryRunner interface {
	Process(ctx context.Context, query string) (*processor.Outcome, error)
}

// Scheduler runs configured query jobs on their cron schedules until the
// context is cancelled.
type Scheduler struct {
	jobs   []job
	runner QueryRunner
	logger *slog.Logger
}

type job struct {
	cfg      config.JobConfig
	schedule cron.Schedule
	runCount int64
	errCount int64
}

// New validates job expressions and creates a scheduler. Disabled jobs
// are dropped here.
func New(jobs []config.JobConfig, runner QueryRunner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		logger: logger.With("component", "scheduler"),
	}
	for _, cfg := range jobs {
		if !cfg.Enabled {
			s.logger.Debug("job disabled, skipping", "job", cfg.ID)
			continue
		}
		schedule, err := cron.ParseStandard(cfg.Expr)
		if err != nil {
			return nil, fmt.Errorf("job %s: invalid cron expression: %w", cfg.ID, err)
		}
		s.jobs = append(s.jobs, job{cfg: cfg, schedule: schedule})
	}
	return s, nil
}

// JobCount returns the number of active jobs.
func (s *Scheduler) JobCount() int {
	return len(s.jobs)
}

// Run blocks, executing each job at its scheduled times, until ctx is
// cancelled. Job failures are logged, never fatal.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		s.logger.Info("no scheduled jobs")
		<-ctx.Done()
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i := range s.jobs {
		j := &s.jobs[i]
		g.Go(func() error {
			s.runJob(gCtx, j)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	logger := s.logger.With("job", j.cfg.ID)
	for {
		next := j.schedule.Next(time.Now())
		logger.Debug("next run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("job stopped")
			return
		case <-timer.C:
		}

		s.execute(ctx, j, logger)
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job, logger *slog.Logger) {
	start := time.Now()
	j.runCount++

	outcome, err := s.runner.Process(ctx, j.cfg.Query)
	if err != nil {
		j.errCount++
		logger.Error("scheduled query failed", "error", err, "failures", j.errCount)
		return
	}

	logger.Info("scheduled query complete",
		"id", outcome.ID,
		"runs", j.runCount,
		"duration", time.Since(start),
	)
}
