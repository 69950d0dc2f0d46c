package tools

import (
	"context"
	"time"
)

// TimeTool reports the current local wall-clock time. The input is ignored.
type TimeTool struct {
	now func() time.Time
}

// NewTimeTool creates a TimeTool reading the system clock.
func NewTimeTool() *TimeTool {
	return &TimeTool{now: time.Now}
}

// NewTimeToolWithClock creates a TimeTool with an injected clock.
func NewTimeToolWithClock(now func() time.Time) *TimeTool {
	return &TimeTool{now: now}
}

func (t *TimeTool) Name() string { return "time" }

func (t *TimeTool) Description() string {
	return "Returns the current local time in HH:MM:SS format"
}

func (t *TimeTool) Run(ctx context.Context, input string) (string, error) {
	return t.now().Format("15:04:05"), nil
}
