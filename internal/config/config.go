// Package config loads qualifier configuration from an optional YAML file
// with environment-variable fallback. Precedence is flags > file > env >
// defaults; flags are applied by the CLI on top of the loaded config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML strings like "90s" or "2m" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(out)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Pipeline bounds batch processing.
type Pipeline struct {
	MaxConcurrency int      `yaml:"max_concurrency"`
	LeadTimeout    Duration `yaml:"lead_timeout"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
}

// Scoring selects the rule set: a built-in name or a YAML rule-set file.
type Scoring struct {
	RuleSet     string `yaml:"rule_set"`
	RuleSetFile string `yaml:"rule_set_file"`
}

// Gemini configures the Gemini-backed identity extractor and council agents.
// The API key is env-only so it never lands in a config file.
type Gemini struct {
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Registry configures the license-registry client. Empty base URL disables
// identity resolution.
type Registry struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"-"`
}

// Council configures consensus review of marginal leads.
type Council struct {
	Mode          string    `yaml:"mode"`
	SoftThreshold float64   `yaml:"soft_threshold"`
	AgentTimeout  Duration  `yaml:"agent_timeout"`
	Personas      []Persona `yaml:"personas"`
}

// Persona is one council seat: an id plus the perspective its agent argues
// from.
type Persona struct {
	ID    string `yaml:"id"`
	Brief string `yaml:"brief"`
	Focus string `yaml:"focus"`
}

// Config is the full qualifier configuration.
type Config struct {
	Pipeline Pipeline `yaml:"pipeline"`
	Scoring  Scoring  `yaml:"scoring"`
	Gemini   Gemini   `yaml:"gemini"`
	Registry Registry `yaml:"registry"`
	Council  Council  `yaml:"council"`
}

// Default returns the configuration used when neither file nor environment
// overrides a value.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			MaxConcurrency: 4,
			LeadTimeout:    Duration(2 * time.Minute),
		},
		Scoring: Scoring{RuleSet: "full"},
		Council: Council{
			Mode:          "strict",
			SoftThreshold: 0.7,
			AgentTimeout:  Duration(60 * time.Second),
		},
	}
}

// Load builds the config from defaults, then the environment, then the YAML
// file at path (optional; empty path skips the file).
func Load(path string) (Config, error) {
	cfg := Default()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	// Secrets only ever come from the environment.
	cfg.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.Registry.Token = strings.TrimSpace(os.Getenv("REGISTRY_TOKEN"))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Pipeline.MaxConcurrency < 0 {
		return fmt.Errorf("pipeline.max_concurrency must be >= 0")
	}
	if c.Scoring.RuleSet == "" && c.Scoring.RuleSetFile == "" {
		return fmt.Errorf("scoring.rule_set or scoring.rule_set_file is required")
	}
	switch c.Council.Mode {
	case "strict", "soft":
	default:
		return fmt.Errorf("council.mode must be strict or soft (got %q)", c.Council.Mode)
	}
	if c.Council.SoftThreshold < 0 || c.Council.SoftThreshold > 1 {
		return fmt.Errorf("council.soft_threshold must be within [0,1]")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error
	if cfg.Pipeline.MaxConcurrency, err = envInt("MAX_CONCURRENCY", cfg.Pipeline.MaxConcurrency); err != nil {
		return err
	}
	leadTimeout, err := envDuration("LEAD_TIMEOUT", cfg.Pipeline.LeadTimeout.Std())
	if err != nil {
		return err
	}
	cfg.Pipeline.LeadTimeout = Duration(leadTimeout)
	if cfg.Pipeline.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", cfg.Pipeline.RateLimitRPS); err != nil {
		return err
	}
	cfg.Scoring.RuleSet = envString("RULE_SET", cfg.Scoring.RuleSet)
	cfg.Scoring.RuleSetFile = envString("RULE_SET_FILE", cfg.Scoring.RuleSetFile)
	cfg.Gemini.Model = envString("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.BaseURL = envString("GEMINI_BASE_URL", cfg.Gemini.BaseURL)
	cfg.Registry.BaseURL = envString("REGISTRY_URL", cfg.Registry.BaseURL)
	cfg.Council.Mode = envString("COUNCIL_MODE", cfg.Council.Mode)
	if cfg.Council.SoftThreshold, err = envFloat("COUNCIL_SOFT_THRESHOLD", cfg.Council.SoftThreshold); err != nil {
		return err
	}
	agentTimeout, err := envDuration("COUNCIL_AGENT_TIMEOUT", cfg.Council.AgentTimeout.Std())
	if err != nil {
		return err
	}
	cfg.Council.AgentTimeout = Duration(agentTimeout)
	return nil
}

func envString(varName, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
