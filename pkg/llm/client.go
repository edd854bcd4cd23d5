// Package llm provides a uniform completion interface over multiple LLM
// providers with ordered failover, retry with backoff, and batch embeddings.
package llm

import "context"

// Request is the provider-independent completion request. Each provider
// adapter translates it into its own wire format.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// Client produces a text completion for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Embedder produces embedding vectors for a batch of texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
	Name() string
}
