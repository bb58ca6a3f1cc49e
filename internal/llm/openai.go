package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIClient talks to OpenAI's chat completions API, the same
// bearer-authenticated JSON POST shape used by the embedding provider for
// its own OpenAI calls.
type OpenAIClient struct {
	apiKey  string
	model   string
	client  *http.Client
	timeout time.Duration
}

// NewOpenAIClient constructs an OpenAIClient.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) chat(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai: no api key configured")
	}

	reqBody := openAIChatRequest{
		Model: c.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai chat: status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Rewrite implements Provider.
func (c *OpenAIClient) Rewrite(ctx context.Context, query string) (string, error) {
	return WithTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		return c.chat(ctx, rewriteSystemPrompt, query)
	})
}

// Summarize implements Provider.
func (c *OpenAIClient) Summarize(ctx context.Context, content string) (string, error) {
	return WithTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		return c.chat(ctx, summarizeSystemPrompt, content)
	})
}

// RerankAndSelect implements Provider.
func (c *OpenAIClient) RerankAndSelect(ctx context.Context, query string, candidates map[string]string) ([]string, error) {
	return WithTimeout(ctx, c.timeout, func(ctx context.Context) ([]string, error) {
		prompt := buildRerankPrompt(query, candidates)
		reply, err := c.chat(ctx, rerankSystemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		return parseRerankReply(reply, candidates)
	})
}
