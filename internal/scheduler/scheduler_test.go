package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/toolbelt-cli/toolbelt/internal/config"
	"github.com/toolbelt-cli/toolbelt/internal/processor"
)

type countingRunner struct {
	calls atomic.Int64
}

func (c *countingRunner) Process(ctx context.Context, query string) (*processor.Outcome, error) {
	c.calls.Add(1)
	return &processor.Outcome{ID: "test", Query: query}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestNewDropsDisabledJobs(t *testing.T) {
	jobs := []config.JobConfig{
		{ID: "a", Expr: "* * * * *", Query: "q", Enabled: true},
		{ID: "b", Expr: "* * * * *", Query: "q", Enabled: false},
	}
	s, err := New(jobs, &countingRunner{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if s.JobCount() != 1 {
		t.Errorf("expected 1 active job, got %d", s.JobCount())
	}
}

func TestNewRejectsBadExpression(t *testing.T) {
	jobs := []config.JobConfig{{ID: "a", Expr: "every tuesday", Query: "q", Enabled: true}}
	if _, err := New(jobs, &countingRunner{}, testLogger()); err == nil {
		t.Fatal("expected error for bad cron expression")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	jobs := []config.JobConfig{{ID: "a", Expr: "* * * * *", Query: "q", Enabled: true}}
	s, err := New(jobs, &countingRunner{}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error on cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestExecuteRunsQuery(t *testing.T) {
	runner := &countingRunner{}
	jobs := []config.JobConfig{{ID: "a", Expr: "* * * * *", Query: "2 * 3", Enabled: true}}
	s, err := New(jobs, runner, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	s.execute(context.Background(), &s.jobs[0], testLogger())
	if runner.calls.Load() != 1 {
		t.Errorf("expected 1 processed query, got %d", runner.calls.Load())
	}
	if s.jobs[0].runCount != 1 {
		t.Errorf("run count not updated: %d", s.jobs[0].runCount)
	}
}
