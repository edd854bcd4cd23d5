package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goalconvo/goalconvo/pkg/config"
)

// salvageMaxTokens is the reduced budget used for the single retry after a
// timeout. A short completion is better than none for turn-level prompts.
const salvageMaxTokens = 20

// Chain tries providers in a fixed order, retrying transient failures on
// each before failing over to the next.
type Chain struct {
	providers  []Client
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// NewChain builds a failover chain over the given providers.
func NewChain(providers []Client, maxRetries int, retryDelay, timeout time.Duration) *Chain {
	return &Chain{
		providers:  providers,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		timeout:    timeout,
	}
}

// BuildChain assembles the provider chain from configuration. Only
// configured providers participate; the order is fixed: OpenRouter, Groq,
// DeepSeek, Local, Gemini, OpenAI, Mistral.
func BuildChain(ctx context.Context, cfg *config.Config) (*Chain, error) {
	p := cfg.Providers
	timeout := cfg.Generation.Timeout()

	var providers []Client
	add := func(name string, pc config.ProviderConfig) {
		if pc.APIKey == "" {
			return
		}
		t := timeout
		if pc.TimeoutSeconds > 0 {
			t = time.Duration(pc.TimeoutSeconds) * time.Second
		}
		providers = append(providers, NewOpenAICompatibleClient(name, pc.BaseURL, pc.APIKey, pc.Model, t))
	}

	add("openrouter", p.OpenRouter)
	add("groq", p.Groq)
	add("deepseek", p.DeepSeek)

	if p.Local.BaseURL != "" {
		t := timeout
		if p.Local.TimeoutSeconds > 0 {
			t = time.Duration(p.Local.TimeoutSeconds) * time.Second
		}
		providers = append(providers, NewOpenAICompatibleClient("local", p.Local.BaseURL, "", p.Local.Model, t))
	}

	if p.Gemini.APIKey != "" {
		gemini, err := NewGeminiClient(ctx, p.Gemini.APIKey, p.Gemini.Model)
		if err != nil {
			return nil, err
		}
		providers = append(providers, gemini)
	}

	add("openai", p.OpenAI)
	add("mistral", p.Mistral)

	if len(providers) == 0 {
		return nil, NewError(KindConfigError, "", errors.New("no providers configured"))
	}

	return NewChain(providers, cfg.Generation.MaxRetries, cfg.Generation.RetryDelay(), timeout), nil
}

func (c *Chain) Name() string { return "chain" }

// Providers returns the names of the participating providers, in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Complete tries each provider in order. Transient failures (timeouts, rate
// limits, transport errors) are retried on the same provider up to
// maxRetries times before moving on. A timed-out request gets one salvage
// attempt with a reduced token budget before counting as a failure.
func (c *Chain) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for _, provider := range c.providers {
		text, err := c.completeWithRetries(ctx, provider, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", lastErr
		}
		slog.Warn("Provider failed, trying next",
			"provider", provider.Name(), "kind", KindOf(err), "error", err)
	}

	if lastErr == nil {
		lastErr = NewError(KindConfigError, "", errors.New("no providers configured"))
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

func (c *Chain) completeWithRetries(ctx context.Context, provider Client, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay
			if KindOf(lastErr) == KindRateLimited {
				// Back off harder when the provider is throttling us.
				delay = c.retryDelay * time.Duration(1<<attempt)
			}
			select {
			case <-ctx.Done():
				return "", NewError(KindTimeout, provider.Name(), ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := c.attempt(ctx, provider, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		// Salvage only shrinks a budget; probe-sized requests at or below
		// the salvage budget would just repeat the same timed-out call.
		if KindOf(err) == KindTimeout && req.MaxTokens > salvageMaxTokens {
			salvaged, salvageErr := c.attempt(ctx, provider, salvageRequest(req))
			if salvageErr == nil {
				slog.Debug("Salvaged short completion after timeout", "provider", provider.Name())
				return salvaged, nil
			}
		}

		if !Retryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Chain) attempt(ctx context.Context, provider Client, req Request) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return provider.Complete(attemptCtx, req)
}

func salvageRequest(req Request) Request {
	salvage := req
	salvage.MaxTokens = salvageMaxTokens
	return salvage
}
