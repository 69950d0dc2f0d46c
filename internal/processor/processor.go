package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toolbelt-cli/toolbelt/internal/config"
	"github.com/toolbelt-cli/toolbelt/internal/llm"
	"github.com/toolbelt-cli/toolbelt/internal/tools"
)

// SelectionError reports a failed or unusable model selection call.
type SelectionError struct {
	Model string
	Err   error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("tool selection with %s failed: %v", e.Model, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// ToolResult is one tool's contribution to an outcome.
type ToolResult struct {
	Tool      string
	Output    string
	Err       error
	ElapsedMs int64
}

// Outcome is the full record of one processed query.
type Outcome struct {
	ID       string
	Query    string
	Policy   string
	Model    string
	Selected []string
	Results  []ToolResult
	Output   string
	Duration time.Duration
}

// Recorder persists outcomes. Implemented by the history store.
type Recorder interface {
	Record(ctx context.Context, o *Outcome) error
}

// Processor runs the query pipeline: selection prompt, model call,
// parsing, dispatch, aggregation. One query is one sequential pass;
// tools never run in parallel.
type Processor struct {
	registry *tools.Registry
	router   *llm.Router
	pipeline config.PipelineConfig
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Processor. recorder may be nil.
func New(registry *tools.Registry, router *llm.Router, pipeline config.PipelineConfig, recorder Recorder, logger *slog.Logger) *Processor {
	return &Processor{
		registry: registry,
		router:   router,
		pipeline: pipeline,
		recorder: recorder,
		logger:   logger.With("component", "processor"),
	}
}

// Process answers one query under the configured policies.
func (p *Processor) Process(ctx context.Context, query string) (*Outcome, error) {
	start := time.Now()
	outcome := &Outcome{
		ID:     uuid.NewString(),
		Query:  query,
		Policy: p.pipeline.Selection,
		Model:  p.pipeline.Model,
	}

	var selected []string
	switch p.pipeline.Selection {
	case config.SelectionAll:
		// Every registered tool runs; the model call would be pure
		// overhead, so it is skipped.
		for _, t := range p.registry.List() {
			selected = append(selected, t.Name())
		}
	default:
		names, err := p.selectTools(ctx, query)
		if err != nil {
			return nil, err
		}
		selected = names
	}
	outcome.Selected = selected

	results, err := p.dispatch(ctx, selected, query)
	if err != nil {
		return nil, err
	}
	outcome.Results = results
	outcome.Output = aggregate(results)
	outcome.Duration = time.Since(start)

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, outcome); err != nil {
			p.logger.Warn("failed to record outcome", "id", outcome.ID, "error", err)
		}
	}

	p.logger.Info("query processed",
		"id", outcome.ID,
		"selected", len(selected),
		"results", len(results),
		"duration", outcome.Duration,
	)
	return outcome, nil
}

// selectTools asks the model which tools apply and parses its answer.
func (p *Processor) selectTools(ctx context.Context, query string) ([]string, error) {
	provider, modelID, err := p.router.Resolve(p.pipeline.Model)
	if err != nil {
		return nil, &SelectionError{Model: p.pipeline.Model, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.pipeline.Timeout())
	defer cancel()

	resp, err := provider.Generate(ctx, llm.Request{
		Model:     modelID,
		Prompt:    BuildSelectionPrompt(p.registry, query),
		MaxTokens: p.pipeline.MaxTokens,
	})
	if err != nil {
		return nil, &SelectionError{Model: p.pipeline.Model, Err: err}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, &SelectionError{Model: p.pipeline.Model, Err: fmt.Errorf("empty response")}
	}

	return ParseSelection(resp.Content), nil
}

// dispatch runs each selected tool against the original query. Unknown
// names are skipped silently. Under the strict failure policy a tool
// error aborts the whole query; under lenient the tool contributes
// nothing and dispatch continues.
func (p *Processor) dispatch(ctx context.Context, selected []string, query string) ([]ToolResult, error) {
	var results []ToolResult
	for _, name := range selected {
		tool, ok := p.registry.Find(name)
		if !ok {
			p.logger.Debug("selected tool not registered, skipping", "name", name)
			continue
		}

		toolStart := time.Now()
		output, err := tool.Run(ctx, query)
		result := ToolResult{
			Tool:      name,
			Output:    output,
			Err:       err,
			ElapsedMs: time.Since(toolStart).Milliseconds(),
		}
		if err != nil {
			if p.pipeline.Failures == config.FailuresStrict {
				return nil, fmt.Errorf("tool %s: %w", name, err)
			}
			p.logger.Warn("tool failed, skipping", "tool", name, "error", err)
		}
		results = append(results, result)
	}
	return results, nil
}

// aggregate joins successful outputs with newlines in dispatch order.
// An empty result set yields an empty string, not an error.
func aggregate(results []ToolResult) string {
	var outputs []string
	for _, r := range results {
		if r.Err == nil {
			outputs = append(outputs, r.Output)
		}
	}
	return strings.Join(outputs, "\n")
}
