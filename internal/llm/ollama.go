package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient talks to a local Ollama server's chat API, the same
// non-streaming POST-to-/api/chat shape used elsewhere in the pack for
// local model access.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	timeout time.Duration
}

// NewOllamaClient constructs an OllamaClient. baseURL defaults to
// http://localhost:11434 when empty.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

func (o *OllamaClient) chat(ctx context.Context, system, user string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return chatResp.Message.Content, nil
}

// Rewrite implements Provider.
func (o *OllamaClient) Rewrite(ctx context.Context, query string) (string, error) {
	return WithTimeout(ctx, o.timeout, func(ctx context.Context) (string, error) {
		return o.chat(ctx, rewriteSystemPrompt, query)
	})
}

// Summarize implements Provider.
func (o *OllamaClient) Summarize(ctx context.Context, content string) (string, error) {
	return WithTimeout(ctx, o.timeout, func(ctx context.Context) (string, error) {
		return o.chat(ctx, summarizeSystemPrompt, content)
	})
}

// RerankAndSelect implements Provider.
func (o *OllamaClient) RerankAndSelect(ctx context.Context, query string, candidates map[string]string) ([]string, error) {
	return WithTimeout(ctx, o.timeout, func(ctx context.Context) ([]string, error) {
		prompt := buildRerankPrompt(query, candidates)
		reply, err := o.chat(ctx, rerankSystemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		return parseRerankReply(reply, candidates)
	})
}
