package llmchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"shoprag/internal/domain"
	"shoprag/internal/infra/httpclient"
)

// OpenAIClient generates answers through an OpenAI-compatible chat
// completions endpoint. Any backend speaking the same API works; only the
// base URL, model, and key differ.
type OpenAIClient struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Client      *http.Client
}

func NewOpenAIClient(baseURL, apiKey, model string, temperature float64, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		Temperature: temperature,
		Client:      httpclient.NewPooledClient(timeout),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (c *OpenAIClient) Generate(ctx context.Context, system, user string, maxTokens int) (*domain.LLMResponse, error) {
	start := time.Now()

	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: c.Temperature,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		slog.Error("chat_request_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("failed to call chat backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("chat_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("chat backend returned status: %d", resp.StatusCode)
	}

	var respBody chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return nil, fmt.Errorf("chat backend returned no choices")
	}

	choice := respBody.Choices[0]
	slog.Debug("chat_completed",
		slog.String("model", c.Model),
		slog.String("finish_reason", choice.FinishReason),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &domain.LLMResponse{
		Text: choice.Message.Content,
		Done: choice.FinishReason == "stop",
	}, nil
}

func (c *OpenAIClient) Version() string {
	return c.Model
}

var _ domain.LLMClient = (*OpenAIClient)(nil)
