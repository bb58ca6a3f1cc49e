package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// GeminiClient talks to the Google Generative Language API's
// generateContent endpoint. Auth is a query-string API key rather than a
// bearer header, and system instructions are a separate request field
// instead of a "system" role message.
type GeminiClient struct {
	apiKey  string
	model   string
	client  *http.Client
	timeout time.Duration
}

// NewGeminiClient constructs a GeminiClient.
func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiSystemInstruction `json:"system_instruction"`
	Contents          []geminiContent         `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) chat(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini: no api key configured")
	}

	reqBody := geminiRequest{
		SystemInstruction: geminiSystemInstruction{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: user}}}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini generateContent: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini generateContent: status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini generateContent: no candidates returned")
	}
	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}

// Rewrite implements Provider.
func (c *GeminiClient) Rewrite(ctx context.Context, query string) (string, error) {
	return WithTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		return c.chat(ctx, rewriteSystemPrompt, query)
	})
}

// Summarize implements Provider.
func (c *GeminiClient) Summarize(ctx context.Context, content string) (string, error) {
	return WithTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		return c.chat(ctx, summarizeSystemPrompt, content)
	})
}

// RerankAndSelect implements Provider.
func (c *GeminiClient) RerankAndSelect(ctx context.Context, query string, candidates map[string]string) ([]string, error) {
	return WithTimeout(ctx, c.timeout, func(ctx context.Context) ([]string, error) {
		prompt := buildRerankPrompt(query, candidates)
		reply, err := c.chat(ctx, rerankSystemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		return parseRerankReply(reply, candidates)
	})
}
