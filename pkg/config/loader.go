package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the user configuration file looked up inside the config
// directory. The file is optional; built-in defaults apply when absent.
const ConfigFileName = "goalconvo.yaml"

// Initialize loads configuration from configDir, merges it over built-in
// defaults, applies environment overrides, and validates the result.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	cfg := defaultConfig()

	path := filepath.Join(configDir, ConfigFileName)
	user, err := loadYAML(path)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			slog.Info("No user configuration found, using defaults", "path", path)
		} else {
			return nil, err
		}
	} else {
		if err := mergo.Merge(cfg, *user, mergo.WithOverride); err != nil {
			return nil, NewLoadError(path, fmt.Errorf("merging configuration: %w", err))
		}
		slog.Info("Loaded user configuration", "path", path)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML reads a YAML file, expands {{.VAR}} environment references, and
// unmarshals it into a Config.
func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewLoadError(path, ErrConfigNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &cfg, nil
}

// applyEnvOverrides picks up the well-known environment variables so a bare
// environment (no YAML at all) can still configure providers.
func applyEnvOverrides(cfg *Config) {
	setIfEnv := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setIfEnv(&cfg.Providers.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	setIfEnv(&cfg.Providers.Groq.APIKey, "GROQ_API_KEY")
	setIfEnv(&cfg.Providers.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
	setIfEnv(&cfg.Providers.Gemini.APIKey, "GOOGLE_API_KEY")
	setIfEnv(&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEnv(&cfg.Providers.Mistral.APIKey, "MISTRAL_API_KEY")
	setIfEnv(&cfg.Providers.Local.BaseURL, "OLLAMA_BASE_URL")
	setIfEnv(&cfg.Server.Port, "HTTP_PORT")
	setIfEnv(&cfg.Data.Dir, "DATA_DIR")

	if os.Getenv("EVAL_SKIP_LLM_JUDGE") != "" {
		cfg.Evaluation.SkipLLMJudge = true
	}
}

// Validate checks the configuration for internal consistency. At least one
// LLM provider must be configured or the service cannot generate anything.
func (c *Config) Validate() error {
	if !c.Providers.AnyConfigured() {
		return NewValidationError("providers", "", "", ErrNoProviderConfigured)
	}

	g := c.Generation
	if g.MinTurns < 1 {
		return NewValidationError("generation", "", "min_turns", ErrInvalidValue)
	}
	if g.MaxTurns < g.MinTurns {
		return NewValidationError("generation", "", "max_turns", fmt.Errorf("%w: max_turns %d < min_turns %d", ErrInvalidValue, g.MaxTurns, g.MinTurns))
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return NewValidationError("generation", "", "temperature", ErrInvalidValue)
	}
	if g.TopP <= 0 || g.TopP > 1 {
		return NewValidationError("generation", "", "top_p", ErrInvalidValue)
	}
	if len(g.Domains) == 0 {
		return NewValidationError("generation", "", "domains", ErrMissingRequiredField)
	}
	for _, d := range g.Domains {
		if !slices.Contains(KnownDomains, d) {
			return NewValidationError("generation", d, "domains", fmt.Errorf("%w: unknown domain %q", ErrInvalidValue, d))
		}
	}

	if c.Judge.QualityThreshold < 0 || c.Judge.QualityThreshold > 1 {
		return NewValidationError("judge", "", "quality_threshold", ErrInvalidValue)
	}
	if c.Judge.DiscardRate < 0 || c.Judge.DiscardRate > 1 {
		return NewValidationError("judge", "", "discard_rate", ErrInvalidValue)
	}

	if c.Data.Dir == "" {
		return NewValidationError("data", "", "dir", ErrMissingRequiredField)
	}
	return nil
}
