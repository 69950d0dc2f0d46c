package tools

import (
	"context"
	"fmt"
)

// Tool is the interface for executable tools.
type Tool interface {
	// Name returns the tool identifier.
	Name() string

	// Description returns a human-readable description shown to the
	// model during selection and to users in verbose listings.
	Description() string

	// Run executes the tool against the raw user query.
	Run(ctx context.Context, input string) (string, error)
}

// ExecError is returned when a tool's Run fails.
type ExecError struct {
	Tool    string
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}
