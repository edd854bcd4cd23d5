package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAICompatibleEmbedder produces embeddings through an OpenAI-compatible
// /embeddings endpoint. Serves as the fallback when the primary embedding
// provider is unavailable.
type OpenAICompatibleEmbedder struct {
	ProviderName string
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
}

// NewOpenAICompatibleEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewOpenAICompatibleEmbedder(name, baseURL, apiKey string, timeout time.Duration) *OpenAICompatibleEmbedder {
	return &OpenAICompatibleEmbedder{
		ProviderName: name,
		BaseURL:      baseURL,
		APIKey:       apiKey,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
}

func (e *OpenAICompatibleEmbedder) Name() string { return e.ProviderName }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EmbedBatch embeds all texts in one request, preserving input order.
func (e *OpenAICompatibleEmbedder) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Model: model, Input: texts})
	if err != nil {
		return nil, NewError(KindBadLLMResponse, e.ProviderName, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, NewError(KindTransportFailure, e.ProviderName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	resp, err := e.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, NewError(classifyTransport(err), e.ProviderName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, NewError(KindTransportFailure, e.ProviderName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewError(classifyStatus(resp.StatusCode), e.ProviderName,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewError(KindBadLLMResponse, e.ProviderName, fmt.Errorf("decoding response: %w", err))
	}
	if parsed.Error != nil {
		return nil, NewError(KindBadLLMResponse, e.ProviderName, errors.New(parsed.Error.Message))
	}
	if len(parsed.Data) != len(texts) {
		return nil, NewError(KindBadLLMResponse, e.ProviderName,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data)))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, NewError(KindBadLLMResponse, e.ProviderName, fmt.Errorf("embedding index %d out of range", d.Index))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
