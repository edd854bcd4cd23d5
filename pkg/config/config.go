// Package config loads and validates the service configuration from a YAML
// file with environment expansion, layering user settings over built-in
// defaults.
package config

import "time"

// Known dialogue domains. Generation requests are validated against this set.
var KnownDomains = []string{"hotel", "restaurant", "taxi", "train", "attraction"}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Data       DataConfig       `yaml:"data"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Judge      JudgeConfig      `yaml:"judge"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DataConfig holds filesystem layout settings.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// ProviderConfig configures a single LLM provider endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// TimeoutSeconds overrides the global request timeout for this provider.
	// Local models need a larger budget.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Configured reports whether this provider can be used. Hosted providers
// need a key; local endpoints only need a base URL.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != "" || (p.BaseURL != "" && p.APIKey == "" && p.Model != "")
}

// ProvidersConfig holds all provider endpoints. The failover order is fixed:
// OpenRouter, Groq, DeepSeek, Local, Gemini, OpenAI, Mistral.
type ProvidersConfig struct {
	OpenRouter ProviderConfig `yaml:"openrouter"`
	Groq       ProviderConfig `yaml:"groq"`
	DeepSeek   ProviderConfig `yaml:"deepseek"`
	Local      ProviderConfig `yaml:"local"`
	Gemini     ProviderConfig `yaml:"gemini"`
	OpenAI     ProviderConfig `yaml:"openai"`
	Mistral    ProviderConfig `yaml:"mistral"`
}

// AnyConfigured reports whether at least one provider has credentials.
func (p ProvidersConfig) AnyConfigured() bool {
	for _, pc := range []ProviderConfig{p.OpenRouter, p.Groq, p.DeepSeek, p.Local, p.Gemini, p.OpenAI, p.Mistral} {
		if pc.Configured() {
			return true
		}
	}
	return false
}

// GenerationConfig controls dialogue generation and prompting.
type GenerationConfig struct {
	Temperature             float64  `yaml:"temperature"`
	TopP                    float64  `yaml:"top_p"`
	MaxTokens               int      `yaml:"max_tokens"`
	MaxTokensUserTurn       int      `yaml:"max_tokens_user_turn"`
	MaxTokensSupportBotTurn int      `yaml:"max_tokens_supportbot_turn"`
	MinTurns                int      `yaml:"min_turns"`
	MaxTurns                int      `yaml:"max_turns"`
	FewShotExamples         int      `yaml:"few_shot_examples"`
	MaxRetries              int      `yaml:"max_retries"`
	RetryDelaySeconds       float64  `yaml:"retry_delay_seconds"`
	TimeoutSeconds          int      `yaml:"timeout_seconds"`
	PromptMaxWords          int      `yaml:"prompt_max_words"`
	PromptInstructionWords  int      `yaml:"prompt_instruction_words"`
	PromptLastKTurns        int      `yaml:"prompt_last_k_turns"`
	Domains                 []string `yaml:"domains"`
}

// RetryDelay returns the delay between provider retries.
func (g GenerationConfig) RetryDelay() time.Duration {
	return time.Duration(g.RetryDelaySeconds * float64(time.Second))
}

// Timeout returns the per-request LLM timeout.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// SimulatorConfig controls the two-agent turn loop.
type SimulatorConfig struct {
	// GoalCheckInterval is how often (in turns, once min_turns is met) the
	// simulator checks whether the goal has been reached.
	GoalCheckInterval int `yaml:"goal_check_interval"`
	// LoopWindow and LoopSimilarity drive the conversation-loop breaker:
	// when two turns within the window exceed the Jaccard similarity, the
	// dialogue is wrapped up with a confirmation exchange.
	LoopWindow     int     `yaml:"loop_window"`
	LoopSimilarity float64 `yaml:"loop_similarity"`
	// FallbackPrices are quoted by the fallback SupportBot turn when the
	// LLM is unavailable and the user is asking about cost.
	FallbackPrices map[string]string `yaml:"fallback_prices"`
}

// JudgeConfig controls quality filtering.
type JudgeConfig struct {
	// QualityThreshold is the minimum quality score for a dialogue to count
	// as high quality: the few-shot hub promotes only dialogues at or above
	// it, and dataset listings use it as their default quality floor.
	QualityThreshold float64 `yaml:"quality_threshold"`
	// DiscardRate is the target fraction of generated dialogues to reject.
	// A batch that rejects fewer has its lowest-scoring accepted dialogues
	// demoted until the target is met.
	DiscardRate   float64 `yaml:"discard_rate"`
	ImproveOnFail bool    `yaml:"improve_on_fail"`
}

// EvaluationConfig controls the corpus evaluator.
type EvaluationConfig struct {
	EmbeddingModel         string `yaml:"embedding_model"`
	FallbackEmbeddingModel string `yaml:"fallback_embedding_model"`
	ReferenceLimit         int    `yaml:"reference_limit"`
	SkipLLMJudge           bool   `yaml:"skip_llm_judge"`
}

// defaultConfig returns the built-in defaults. User configuration is merged
// on top with mergo.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Data:   DataConfig{Dir: "./data"},
		Providers: ProvidersConfig{
			OpenRouter: ProviderConfig{BaseURL: "https://openrouter.ai/api/v1", Model: "meta-llama/llama-3.3-70b-instruct"},
			Groq:       ProviderConfig{BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile"},
			DeepSeek:   ProviderConfig{BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
			Local:      ProviderConfig{Model: "llama3", TimeoutSeconds: 240},
			Gemini:     ProviderConfig{Model: "gemini-2.0-flash"},
			OpenAI:     ProviderConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
			Mistral:    ProviderConfig{BaseURL: "https://api.mistral.ai/v1", Model: "mistral-small-latest"},
		},
		Generation: GenerationConfig{
			Temperature:             0.75,
			TopP:                    0.92,
			MaxTokens:               120,
			MaxTokensUserTurn:       60,
			MaxTokensSupportBotTurn: 100,
			MinTurns:                6,
			MaxTurns:                15,
			FewShotExamples:         4,
			MaxRetries:              3,
			RetryDelaySeconds:       1.0,
			TimeoutSeconds:          60,
			PromptMaxWords:          1000,
			PromptInstructionWords:  250,
			PromptLastKTurns:        6,
			Domains:                 append([]string(nil), KnownDomains...),
		},
		Simulator: SimulatorConfig{
			GoalCheckInterval: 3,
			LoopWindow:        6,
			LoopSimilarity:    0.5,
			FallbackPrices: map[string]string{
				"cheap":     "around $60 per night",
				"moderate":  "around $120 per night",
				"expensive": "around $220 per night",
			},
		},
		Judge: JudgeConfig{
			QualityThreshold: 0.7,
			DiscardRate:      0.1,
			ImproveOnFail:    true,
		},
		Evaluation: EvaluationConfig{
			EmbeddingModel:         "gemini-embedding-001",
			FallbackEmbeddingModel: "text-embedding-3-small",
			ReferenceLimit:         100,
		},
	}
}
