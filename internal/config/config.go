package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Selection policies decide which tools run for a query.
const (
	// SelectionLLM runs only the tools the model names.
	SelectionLLM = "llm"
	// SelectionAll runs every registered tool and skips the model call.
	SelectionAll = "all"
)

// Failure policies decide what a tool error does to the rest of a dispatch.
const (
	// FailuresStrict aborts the whole query on the first tool error.
	FailuresStrict = "strict"
	// FailuresLenient skips the failing tool and keeps dispatching.
	FailuresLenient = "lenient"
)

// Config holds all toolbelt configuration.
type Config struct {
	// Query pipeline settings
	Pipeline PipelineConfig `json:"pipeline"`

	// LLM provider settings
	Providers map[string]ProviderConfig `json:"providers"`

	// Built-in tool toggles
	Tools ToolsConfig `json:"tools"`

	// Query run history
	History HistoryConfig `json:"history"`

	// Scheduled query jobs
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`

	// External tool packs
	Packs PacksConfig `json:"packs,omitempty"`

	LogLevel string `json:"logLevel"`
	DataDir  string `json:"dataDir"`
}

// PipelineConfig controls the query processor.
type PipelineConfig struct {
	// Model reference in "provider/model-id" form.
	Model string `json:"model"`
	// Selection is "llm" or "all".
	Selection string `json:"selection"`
	// Failures is "strict" or "lenient".
	Failures string `json:"failures"`
	// TimeoutSecs bounds the model call.
	TimeoutSecs int `json:"timeoutSecs"`
	MaxTokens   int `json:"maxTokens"`
}

// Timeout returns the model call timeout as a duration.
func (p PipelineConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// ProviderConfig holds one LLM provider's settings. The API key is
// resolved from the environment at load time; a value in the config
// file takes precedence.
type ProviderConfig struct {
	BaseURL string `json:"baseUrl,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

// ToolsConfig toggles the built-in tools.
type ToolsConfig struct {
	Time       bool `json:"time"`
	Calculator bool `json:"calculator"`
	Expression bool `json:"expression"`
}

// HistoryConfig controls the sqlite run history.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"` // defaults to <dataDir>/history.db
}

// SchedulerConfig holds scheduled query jobs.
type SchedulerConfig struct {
	Jobs []JobConfig `json:"jobs"`
}

// JobConfig defines one scheduled query.
type JobConfig struct {
	ID      string `json:"id"`
	Expr    string `json:"expr"` // standard 5-field cron expression
	Query   string `json:"query"`
	Enabled bool   `json:"enabled"`
}

// PacksConfig controls external tool pack discovery.
type PacksConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"` // defaults to ~/.toolbelt/packs
}

// CredentialError reports a missing API credential. It is surfaced before
// any network I/O is attempted.
type CredentialError struct {
	Provider string
	EnvVar   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("no API key for provider %q: set %s or providers.%s.apiKey",
		e.Provider, e.EnvVar, e.Provider)
}

// envKeys maps provider names to the environment variables consulted for
// credentials, in priority order.
var envKeys = map[string][]string{
	"anthropic": {"TOOLBELT_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
	"openai":    {"TOOLBELT_OPENAI_API_KEY", "OPENAI_API_KEY"},
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Model:       "anthropic/claude-sonnet-4-6",
			Selection:   SelectionLLM,
			Failures:    FailuresLenient,
			TimeoutSecs: 60,
			MaxTokens:   256,
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {},
		},
		Tools: ToolsConfig{
			Time:       true,
			Calculator: true,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		LogLevel: "info",
		DataDir:  defaultDataDir(),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".toolbelt")
	}
	return filepath.Join(home, ".toolbelt")
}

// Load reads config from a JSON file, overlays it on the defaults, and
// resolves provider credentials from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ResolveCredentials()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to a JSON file. API keys loaded from the environment
// are not written back.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0640)
}

// ResolveCredentials fills empty provider API keys from the environment.
func (c *Config) ResolveCredentials() {
	for name, prov := range c.Providers {
		if prov.APIKey != "" {
			continue
		}
		for _, key := range envKeys[name] {
			if v := os.Getenv(key); v != "" {
				prov.APIKey = v
				c.Providers[name] = prov
				break
			}
		}
	}
}

// Validate checks policy names, timeouts, and scheduled job definitions.
func (c *Config) Validate() error {
	switch c.Pipeline.Selection {
	case SelectionLLM, SelectionAll:
	default:
		return fmt.Errorf("pipeline.selection must be %q or %q, got %q",
			SelectionLLM, SelectionAll, c.Pipeline.Selection)
	}

	switch c.Pipeline.Failures {
	case FailuresStrict, FailuresLenient:
	default:
		return fmt.Errorf("pipeline.failures must be %q or %q, got %q",
			FailuresStrict, FailuresLenient, c.Pipeline.Failures)
	}

	if c.Pipeline.TimeoutSecs <= 0 {
		return fmt.Errorf("pipeline.timeoutSecs must be positive")
	}

	for _, job := range c.Scheduler.Jobs {
		if job.ID == "" {
			return fmt.Errorf("scheduler job missing id")
		}
		if job.Query == "" {
			return fmt.Errorf("scheduler job %s: query required", job.ID)
		}
		if _, err := cron.ParseStandard(job.Expr); err != nil {
			return fmt.Errorf("scheduler job %s: invalid cron expression: %w", job.ID, err)
		}
	}

	return nil
}

// CheckCredential verifies the provider named in a "provider/model" reference
// has an API key. Providers that need no key (ollama) always pass.
func (c *Config) CheckCredential(providerName string) error {
	if providerName == "ollama" {
		return nil
	}
	prov, ok := c.Providers[providerName]
	if !ok || prov.APIKey == "" {
		envVar := "TOOLBELT_" + strings.ToUpper(providerName) + "_API_KEY"
		if keys := envKeys[providerName]; len(keys) > 0 {
			envVar = keys[0]
		}
		return &CredentialError{Provider: providerName, EnvVar: envVar}
	}
	return nil
}

// PacksDir returns the configured pack directory or the default
// ~/.toolbelt/packs.
func (c *Config) PacksDir() string {
	if c.Packs.Dir != "" {
		return c.Packs.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".toolbelt", "packs")
	}
	return filepath.Join(home, ".toolbelt", "packs")
}

// HistoryPath returns the sqlite database path for run history.
func (c *Config) HistoryPath() string {
	return firstNonEmpty(c.History.Path, filepath.Join(c.DataDir, "history.db"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
