package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/toolbelt-cli/toolbelt/internal/config"
	"github.com/toolbelt-cli/toolbelt/internal/history"
	"github.com/toolbelt-cli/toolbelt/internal/llm"
	"github.com/toolbelt-cli/toolbelt/internal/packs"
	"github.com/toolbelt-cli/toolbelt/internal/processor"
	"github.com/toolbelt-cli/toolbelt/internal/scheduler"
	"github.com/toolbelt-cli/toolbelt/internal/tools"
	"github.com/toolbelt-cli/toolbelt/internal/tui"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

// App holds all the runtime components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Registry  *tools.Registry
	Router    *llm.Router
	History   *history.Store
	Processor *processor.Processor
}

// Close releases scoped resources. Safe to call on every exit path.
func (a *App) Close() {
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.Error("failed to close history store", "error", err)
		}
	}
	if a.Router != nil {
		a.Router.CloseIdle()
	}
}

// cliOptions is the parsed command-line surface.
type cliOptions struct {
	configPath string
	query      string
	verbose    bool
	version    bool
	selection  string
	failures   string
	subCmd     string
	subArgs    []string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseCLI(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: toolbelt [--query <text>] [--verbose] [repl|history|schedule]")
		return 2
	}

	if opts.version {
		fmt.Printf("toolbelt v%s (built %s)\n", version, buildTime)
		fmt.Println("LLM tool-dispatch CLI")
		return 0
	}

	app, err := setup(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer app.Close()

	switch opts.subCmd {
	case "repl":
		return runRepl(app)
	case "history":
		return runHistory(app, opts.subArgs)
	case "schedule":
		return runSchedule(app)
	}

	if opts.verbose {
		printTools(app.Registry)
		if opts.query == "" {
			return 0
		}
	}

	return runQuery(app, opts.query)
}

// parseCLI splits a leading subcommand from flags and validates the
// combination. At least one of --query, --verbose, --version, or a
// subcommand must be present.
func parseCLI(args []string) (cliOptions, error) {
	opts := cliOptions{}

	// A leading non-flag argument is a subcommand
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		switch args[0] {
		case "repl", "history", "schedule":
			opts.subCmd = args[0]
			args = args[1:]
		default:
			return opts, fmt.Errorf("unknown command: %s (available: repl, history, schedule)", args[0])
		}
	}

	fs := flag.NewFlagSet("toolbelt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&opts.configPath, "config", "toolbelt.json", "Path to config file")
	fs.StringVar(&opts.query, "query", "", "Query to process")
	fs.BoolVar(&opts.verbose, "verbose", false, "List registered tools")
	fs.BoolVar(&opts.version, "version", false, "Show version")
	fs.StringVar(&opts.selection, "selection", "", "Selection policy override (llm|all)")
	fs.StringVar(&opts.failures, "failures", "", "Failure policy override (strict|lenient)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.subArgs = fs.Args()

	if opts.subCmd == "" && opts.query == "" && !opts.verbose && !opts.version {
		return opts, fmt.Errorf("nothing to do: pass --query, --verbose, or a subcommand")
	}
	return opts, nil
}

// setup initializes all application components.
func setup(opts cliOptions) (*App, error) {
	app := &App{}

	app.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig(opts.configPath, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI policy overrides
	if opts.selection != "" {
		cfg.Pipeline.Selection = opts.selection
	}
	if opts.failures != "" {
		cfg.Pipeline.Failures = opts.failures
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app.Config = cfg

	// Recreate logger with the configured level
	app.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	// Build the tool registry
	app.Registry = tools.NewRegistry(app.Logger)
	if err := registerBuiltins(app.Registry, cfg); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	if cfg.Packs.Enabled {
		loader := packs.NewLoader(cfg.PacksDir(), app.Logger)
		loaded, err := loader.LoadAll()
		if err != nil {
			app.Logger.Warn("failed to load tool packs", "error", err)
		} else {
			for _, regErr := range packs.RegisterAll(app.Registry, loaded) {
				app.Logger.Warn("failed to register pack tool", "error", regErr)
			}
		}
	}

	// Model providers
	app.Router = llm.NewRouter(app.Logger, cfg.Pipeline.Timeout())
	registerProviders(app.Router, cfg)

	// Run history
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath(), app.Logger)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		app.History = store
	}

	var recorder processor.Recorder
	if app.History != nil {
		recorder = app.History
	}
	app.Processor = processor.New(app.Registry, app.Router, cfg.Pipeline, recorder, app.Logger)

	return app, nil
}

// loadConfig loads configuration from file or creates the default.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no config found, creating default", "path", path)
			cfg = config.DefaultConfig()
			if err := cfg.Save(path); err != nil {
				return nil, fmt.Errorf("save default config: %w", err)
			}
			cfg.ResolveCredentials()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// registerBuiltins adds the enabled built-in tools in a fixed order.
func registerBuiltins(registry *tools.Registry, cfg *config.Config) error {
	if cfg.Tools.Time {
		if err := registry.Register(tools.NewTimeTool()); err != nil {
			return err
		}
	}
	if cfg.Tools.Calculator {
		if err := registry.Register(tools.NewCalculatorTool()); err != nil {
			return err
		}
	}
	if cfg.Tools.Expression {
		if err := registry.Register(tools.NewExpressionTool()); err != nil {
			return err
		}
	}
	return nil
}

// registerProviders registers one provider per configured entry.
func registerProviders(router *llm.Router, cfg *config.Config) {
	for name, prov := range cfg.Providers {
		switch name {
		case "anthropic":
			router.Register(llm.NewAnthropicProvider(prov.APIKey, prov.BaseURL, router.HTTPClient()))
		case "ollama":
			router.Register(llm.NewOllamaProvider(prov.BaseURL, router.HTTPClient()))
		default:
			// openai and OpenAI-compatible endpoints
			router.Register(llm.NewOpenAIProvider(name, prov.APIKey, prov.BaseURL, router.HTTPClient()))
		}
	}
}

// checkCredential verifies the configured model's provider has a key
// before any network I/O. Under the run-all policy no model call is
// made, so no credential is needed.
func checkCredential(cfg *config.Config) error {
	if cfg.Pipeline.Selection == config.SelectionAll {
		return nil
	}
	providerName, _, found := strings.Cut(cfg.Pipeline.Model, "/")
	if !found {
		return fmt.Errorf("pipeline.model %q must be provider/model-id", cfg.Pipeline.Model)
	}
	return cfg.CheckCredential(providerName)
}

func printTools(registry *tools.Registry) {
	fmt.Println("Registered tools:")
	for _, t := range registry.List() {
		fmt.Printf("  %-14s %s\n", t.Name(), t.Description())
	}
}

// runQuery processes one query and prints the aggregated output.
func runQuery(app *App, query string) int {
	if err := checkCredential(app.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), getShutdownSignals()...)
	defer stop()

	outcome, err := app.Processor.Process(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if outcome.Output != "" {
		fmt.Println(outcome.Output)
	}
	return 0
}

// runRepl starts the interactive TUI.
func runRepl(app *App) int {
	if err := checkCredential(app.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), getShutdownSignals()...)
	defer stop()

	if err := tui.Run(ctx, app.Processor, app.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runHistory prints recent query runs.
func runHistory(app *App, args []string) int {
	if app.History == nil {
		fmt.Fprintln(os.Stderr, "Error: history is disabled in config")
		return 1
	}

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	limit := fs.Int("n", 20, "Number of runs to show")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	runs, err := app.History.Recent(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return 0
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  [%s, %s]\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.ID, r.Policy, r.Model)
		fmt.Printf("  query:  %s\n", r.Query)
		if len(r.Selected) > 0 {
			fmt.Printf("  tools:  %s\n", strings.Join(r.Selected, ", "))
		}
		if r.Output != "" {
			fmt.Printf("  output: %s\n", strings.ReplaceAll(r.Output, "\n", " | "))
		}
		if r.Errors > 0 {
			fmt.Printf("  errors: %d\n", r.Errors)
		}
	}
	return 0
}

// runSchedule runs configured query jobs until a shutdown signal.
func runSchedule(app *App) int {
	if err := checkCredential(app.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	sched, err := scheduler.New(app.Config.Scheduler.Jobs, app.Processor, app.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if sched.JobCount() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no enabled jobs in scheduler config")
		return 1
	}

	app.Logger.Info("scheduler starting", "jobs", sched.JobCount(), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), getShutdownSignals()...)
	defer stop()

	if err := sched.Run(ctx); err != nil {
		app.Logger.Error("scheduler error", "error", err)
		return 1
	}
	app.Logger.Info("scheduler stopped")
	return 0
}
