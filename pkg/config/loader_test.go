package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
}

func TestInitializeDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Generation.Temperature)
	assert.Equal(t, 6, cfg.Generation.MinTurns)
	assert.Equal(t, 15, cfg.Generation.MaxTurns)
	assert.Equal(t, 0.7, cfg.Judge.QualityThreshold)
	assert.Equal(t, KnownDomains, cfg.Generation.Domains)
	assert.Equal(t, "test-key", cfg.Providers.OpenRouter.APIKey)
}

func TestInitializeUserOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	writeConfig(t, dir, `
generation:
  temperature: 0.5
  max_turns: 20
judge:
  quality_threshold: 0.8
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Generation.Temperature)
	assert.Equal(t, 20, cfg.Generation.MaxTurns)
	assert.Equal(t, 0.8, cfg.Judge.QualityThreshold)
	// Untouched keys keep defaults.
	assert.Equal(t, 6, cfg.Generation.MinTurns)
}

func TestInitializeEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MY_SECRET", "sk-abc123")
	writeConfig(t, dir, `
providers:
  groq:
    api_key: "{{.MY_SECRET}}"
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc123", cfg.Providers.Groq.APIKey)
}

func TestInitializeNoProviders(t *testing.T) {
	dir := t.TempDir()
	// Make sure no ambient keys leak into the test.
	for _, k := range []string{"OPENROUTER_API_KEY", "GROQ_API_KEY", "DEEPSEEK_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "MISTRAL_API_KEY", "OLLAMA_BASE_URL"} {
		t.Setenv(k, "")
	}

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProviderConfigured)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max_turns below min_turns", func(c *Config) { c.Generation.MaxTurns = 2 }},
		{"unknown domain", func(c *Config) { c.Generation.Domains = []string{"spaceport"} }},
		{"threshold above one", func(c *Config) { c.Judge.QualityThreshold = 1.5 }},
		{"empty data dir", func(c *Config) { c.Data.Dir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Providers.OpenAI.APIKey = "k"
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRunOverridesApply(t *testing.T) {
	cfg := defaultConfig()
	temp := 0.3
	fewShot := 2
	improve := false
	o := &RunOverrides{Temperature: &temp, FewShotExamples: &fewShot, QualityImproveOnFail: &improve}

	derived := o.Apply(cfg)
	assert.Equal(t, 0.3, derived.Generation.Temperature)
	assert.Equal(t, 2, derived.Generation.FewShotExamples)
	assert.False(t, derived.Judge.ImproveOnFail)
	// Original untouched.
	assert.Equal(t, 0.75, cfg.Generation.Temperature)
	assert.Equal(t, 4, cfg.Generation.FewShotExamples)

	judge := false
	assert.True(t, (&RunOverrides{}).JudgeEnabled())
	assert.False(t, (&RunOverrides{QualityJudge: &judge}).JudgeEnabled())
	assert.True(t, (*RunOverrides)(nil).JudgeEnabled())
}
