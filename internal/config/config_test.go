package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leadscope/lead-qualifier/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qualifier.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.MaxConcurrency != 4 || cfg.Pipeline.LeadTimeout.Std() != 2*time.Minute {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Scoring.RuleSet != "full" {
		t.Fatalf("unexpected scoring default: %+v", cfg.Scoring)
	}
	if cfg.Council.Mode != "strict" || cfg.Council.SoftThreshold != 0.7 {
		t.Fatalf("unexpected council defaults: %+v", cfg.Council)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
pipeline:
  max_concurrency: 8
  lead_timeout: 90s
  rate_limit_rps: 2.5
scoring:
  rule_set: blended
council:
  mode: soft
  soft_threshold: 0.6
  agent_timeout: 45s
  personas:
    - id: skeptic
      brief: argue against pursuing the lead
      focus: reputation
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.MaxConcurrency != 8 || cfg.Pipeline.LeadTimeout.Std() != 90*time.Second || cfg.Pipeline.RateLimitRPS != 2.5 {
		t.Fatalf("unexpected pipeline: %+v", cfg.Pipeline)
	}
	if cfg.Scoring.RuleSet != "blended" {
		t.Fatalf("unexpected scoring: %+v", cfg.Scoring)
	}
	if cfg.Council.Mode != "soft" || cfg.Council.AgentTimeout.Std() != 45*time.Second {
		t.Fatalf("unexpected council: %+v", cfg.Council)
	}
	if len(cfg.Council.Personas) != 1 || cfg.Council.Personas[0].ID != "skeptic" {
		t.Fatalf("unexpected personas: %+v", cfg.Council.Personas)
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("MAX_CONCURRENCY", "6")
	t.Setenv("RULE_SET", "prequal")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("REGISTRY_URL", "https://registry.example/api")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.MaxConcurrency != 6 || cfg.Scoring.RuleSet != "prequal" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Gemini.APIKey != "test-key" || cfg.Registry.BaseURL != "https://registry.example/api" {
		t.Fatalf("env secrets not applied: %+v", cfg.Gemini)
	}
}

func TestLoad_FileWinsOverEnv(t *testing.T) {
	t.Setenv("RULE_SET", "prequal")

	path := writeFile(t, "scoring:\n  rule_set: blended\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scoring.RuleSet != "blended" {
		t.Fatalf("file must override env: %+v", cfg.Scoring)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{name: "bad council mode", yaml: "council:\n  mode: chaotic\n"},
		{name: "threshold out of range", yaml: "council:\n  soft_threshold: 1.5\n"},
		{name: "bad duration", yaml: "pipeline:\n  lead_timeout: soon\n"},
		{name: "negative concurrency", yaml: "pipeline:\n  max_concurrency: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, tc.yaml)
			if _, err := config.Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
