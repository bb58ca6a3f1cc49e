// Package client provides a thin HTTP client for the daemon's /index,
// /query, and /status endpoints, used by the xtrc CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"time"
)

// Error mirrors the daemon's error envelope.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client talks to a running daemon over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client bound to baseURL (e.g. "http://127.0.0.1:8420").
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// IndexRequest is the /index request body.
type IndexRequest struct {
	RepoPath string `json:"repo_path"`
	Rebuild  bool   `json:"rebuild"`
}

// IndexResponse is the /index response body.
type IndexResponse struct {
	Status        string `json:"status"`
	RepoPath      string `json:"repo_path"`
	FilesScanned  int    `json:"files_scanned"`
	FilesIndexed  int    `json:"files_indexed"`
	FilesDeleted  int    `json:"files_deleted"`
	ChunksIndexed int    `json:"chunks_indexed"`
	DurationMs    int64  `json:"duration_ms"`
}

// Index triggers (re)indexing of repoPath.
func (c *Client) Index(ctx context.Context, repoPath string, rebuild bool) (*IndexResponse, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	var out IndexResponse
	if err := c.post(ctx, "/index", IndexRequest{RepoPath: abs, Rebuild: rebuild}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryResult mirrors one entry of the daemon's /query results array.
type QueryResult struct {
	FilePath        string   `json:"file_path"`
	StartLine       int      `json:"start_line"`
	EndLine         int      `json:"end_line"`
	Symbol          string   `json:"symbol"`
	Description     string   `json:"description"`
	Score           float64  `json:"score"`
	VectorScore     float64  `json:"vector_score"`
	KeywordScore    float64  `json:"keyword_score"`
	SymbolScore     float64  `json:"symbol_score"`
	IntentScore     float64  `json:"intent_score"`
	StructuralScore float64  `json:"structural_score"`
	MatchedIntents  []string `json:"matched_intents"`
	MatchedKeywords []string `json:"matched_keywords"`
	Explanation     string   `json:"explanation"`
}

// QueryResponse is the /query response body.
type QueryResponse struct {
	Status          string        `json:"status"`
	RepoPath        string        `json:"repo_path"`
	Query           string        `json:"query"`
	Results         []QueryResult `json:"results"`
	DurationMs      int64         `json:"duration_ms"`
	SelectionSource string        `json:"selection_source"`
	UsedLLM         bool          `json:"used_llm"`
	LLMModel        string        `json:"llm_model"`
	RewrittenQuery  string        `json:"rewritten_query"`
}

// Query runs a hybrid retrieval query against an already-indexed repository.
func (c *Client) Query(ctx context.Context, repoPath, query string, topK int) (*QueryResponse, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	var out QueryResponse
	body := map[string]interface{}{"repo_path": abs, "query": query}
	if topK > 0 {
		body["top_k"] = topK
	}
	if err := c.post(ctx, "/query", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StatusResponse is the /status response body.
type StatusResponse struct {
	Status        string `json:"status"`
	RepoPath      string `json:"repo_path"`
	IndexedFiles  int    `json:"indexed_files"`
	IndexedChunks int    `json:"indexed_chunks"`
	Model         string `json:"model"`
	Healthy       bool   `json:"healthy"`
	Reason        string `json:"reason,omitempty"`
	LastIndexedAt string `json:"last_indexed_at,omitempty"`
}

// Status reports a repository's current index health.
func (c *Client) Status(ctx context.Context, repoPath string) (*StatusResponse, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	var out StatusResponse
	q := url.Values{"repo_path": {abs}}
	if err := c.get(ctx, "/status?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Code: "SERVER_UNREACHABLE", Message: fmt.Sprintf("could not reach daemon at %s: %v", c.baseURL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error Error `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return &Error{Code: "INVALID_RESPONSE", Message: fmt.Sprintf("daemon returned status %d", resp.StatusCode), StatusCode: resp.StatusCode}
		}
		envelope.Error.StatusCode = resp.StatusCode
		return &envelope.Error
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Code: "INVALID_RESPONSE", Message: fmt.Sprintf("daemon returned malformed JSON: %v", err)}
	}
	return nil
}
