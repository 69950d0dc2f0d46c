package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Pipeline.Selection != SelectionLLM {
		t.Errorf("unexpected default selection policy: %s", cfg.Pipeline.Selection)
	}
	if cfg.Pipeline.Failures != FailuresLenient {
		t.Errorf("unexpected default failure policy: %s", cfg.Pipeline.Failures)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolbelt.json")
	raw := `{"pipeline": {"model": "openai/gpt-4o-mini", "selection": "all", "failures": "strict", "timeoutSecs": 10, "maxTokens": 128}}`
	if err := os.WriteFile(path, []byte(raw), 0640); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.Model != "openai/gpt-4o-mini" {
		t.Errorf("model not overlaid: %s", cfg.Pipeline.Model)
	}
	if cfg.Pipeline.Selection != SelectionAll {
		t.Errorf("selection not overlaid: %s", cfg.Pipeline.Selection)
	}
	// Defaults not mentioned in the file survive
	if !cfg.Tools.Time || !cfg.Tools.Calculator {
		t.Error("built-in tool defaults lost on overlay")
	}
}

func TestValidateRejectsBadPolicies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad selection", func(c *Config) { c.Pipeline.Selection = "sometimes" }},
		{"bad failures", func(c *Config) { c.Pipeline.Failures = "shrug" }},
		{"zero timeout", func(c *Config) { c.Pipeline.TimeoutSecs = 0 }},
		{"bad cron", func(c *Config) {
			c.Scheduler.Jobs = []JobConfig{{ID: "j1", Expr: "not cron", Query: "x"}}
		}},
		{"job without query", func(c *Config) {
			c.Scheduler.Jobs = []JobConfig{{ID: "j1", Expr: "* * * * *"}}
		}},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestResolveCredentialsFromEnv(t *testing.T) {
	t.Setenv("TOOLBELT_ANTHROPIC_API_KEY", "sk-test-123")

	cfg := DefaultConfig()
	cfg.ResolveCredentials()
	if cfg.Providers["anthropic"].APIKey != "sk-test-123" {
		t.Errorf("credential not resolved from env: %q", cfg.Providers["anthropic"].APIKey)
	}

	if err := cfg.CheckCredential("anthropic"); err != nil {
		t.Errorf("unexpected credential error: %v", err)
	}
}

func TestCheckCredentialMissing(t *testing.T) {
	t.Setenv("TOOLBELT_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := DefaultConfig()
	cfg.Providers["anthropic"] = ProviderConfig{}

	err := cfg.CheckCredential("anthropic")
	if err == nil {
		t.Fatal("expected credential error")
	}
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("error is %T, want *CredentialError", err)
	}
	if credErr.Provider != "anthropic" {
		t.Errorf("unexpected provider in error: %s", credErr.Provider)
	}

	// ollama never needs a key
	if err := cfg.CheckCredential("ollama"); err != nil {
		t.Errorf("ollama should not require a credential: %v", err)
	}
}

func TestCheckCredentialUnknownProviderEnvVar(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.CheckCredential("groq")
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("error is %T, want *CredentialError", err)
	}
	if credErr.EnvVar != "TOOLBELT_GROQ_API_KEY" {
		t.Errorf("suggested env var = %q, want TOOLBELT_GROQ_API_KEY", credErr.EnvVar)
	}
}
