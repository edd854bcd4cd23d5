package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient adapts the Google GenAI SDK to the Client interface.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed completion client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, NewError(KindConfigError, "gemini", errors.New("API key is required"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, NewError(KindConfigError, "gemini", fmt.Errorf("creating client: %w", err))
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

// Complete generates a single completion via the GenAI SDK.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(req.TopP))
	}
	if len(req.Stop) > 0 {
		cfg.StopSequences = req.Stop
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", NewError(classifyGenAIErr(err), "gemini", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", NewError(KindBadLLMResponse, "gemini", errors.New("empty completion"))
	}
	return text, nil
}

// classifyGenAIErr maps SDK errors onto the failure kinds. The SDK surfaces
// API errors with their HTTP status embedded.
func classifyGenAIErr(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code)
	}
	return KindTransportFailure
}

// GeminiEmbedder produces batch embeddings via the GenAI SDK.
type GeminiEmbedder struct {
	client *genai.Client
}

// NewGeminiEmbedder creates a Gemini-backed embedder.
func NewGeminiEmbedder(ctx context.Context, apiKey string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, NewError(KindConfigError, "gemini", errors.New("API key is required"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, NewError(KindConfigError, "gemini", fmt.Errorf("creating client: %w", err))
	}
	return &GeminiEmbedder{client: client}, nil
}

func (e *GeminiEmbedder) Name() string { return "gemini" }

// EmbedBatch embeds all texts in one call. GenAI has native batch support.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, NewError(classifyGenAIErr(err), "gemini", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, NewError(KindBadLLMResponse, "gemini",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
