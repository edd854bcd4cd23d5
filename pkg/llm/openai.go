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

// OpenAICompatibleClient speaks the OpenAI chat-completions wire format.
// OpenRouter, Groq, DeepSeek, OpenAI, Mistral, and Ollama (in compatibility
// mode) all accept it, so one adapter covers most of the failover chain.
type OpenAICompatibleClient struct {
	ProviderName string
	BaseURL      string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

// NewOpenAICompatibleClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAICompatibleClient(name, baseURL, apiKey, model string, timeout time.Duration) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		ProviderName: name,
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
}

func (c *OpenAICompatibleClient) Name() string { return c.ProviderName }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a chat-completion request and returns the first choice.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	})
	if err != nil {
		return "", NewError(KindBadLLMResponse, c.ProviderName, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", NewError(KindTransportFailure, c.ProviderName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", NewError(classifyTransport(err), c.ProviderName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", NewError(KindTransportFailure, c.ProviderName, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", NewError(classifyStatus(resp.StatusCode), c.ProviderName,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", NewError(KindBadLLMResponse, c.ProviderName, fmt.Errorf("decoding response: %w", err))
	}
	if parsed.Error != nil {
		return "", NewError(KindBadLLMResponse, c.ProviderName, errors.New(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", NewError(KindBadLLMResponse, c.ProviderName, errors.New("no choices in response"))
	}
	return parsed.Choices[0].Message.Content, nil
}

// classifyStatus maps an HTTP status code to a failure kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindConfigError
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindTransportFailure
	default:
		return KindBadLLMResponse
	}
}

// classifyTransport distinguishes deadline expiry from other network errors.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransportFailure
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
