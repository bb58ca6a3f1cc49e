// Package llm provides an optional collaborator used to rewrite ambiguous
// queries, summarize chunks at index time, and rerank+select the final
// result set. Every call is independently timeout-gated: an LLM call that
// times out or errors degrades silently back to the input it would have
// transformed, since the collaborator is an enhancement, never a
// dependency, of the retrieval pipeline.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/justafolk/xtrc/internal/config"
)

// ErrDisabled is returned by the Disabled provider for every operation.
var ErrDisabled = errors.New("llm collaborator disabled")

// Provider is the LLM collaborator surface. Each method is independent:
// a caller may use Rewrite without ever calling Summarize.
type Provider interface {
	// Rewrite expands or clarifies an ambiguous query into search terms
	// more likely to overlap with indexed keywords.
	Rewrite(ctx context.Context, query string) (string, error)

	// Summarize produces a short natural-language summary of a chunk's
	// content, used to enrich its embedding input and its display snippet.
	Summarize(ctx context.Context, content string) (string, error)

	// RerankAndSelect asks the model to choose and order the most relevant
	// candidate IDs from a candidate set, returning them best-first.
	RerankAndSelect(ctx context.Context, query string, candidates map[string]string) ([]string, error)
}

// New builds a Provider from configuration. UseLLM=false or
// LLMProvider=disabled both yield the Disabled provider.
func New(cfg *config.Config) Provider {
	if !cfg.UseLLM {
		return Disabled{}
	}
	timeout := time.Duration(cfg.LLMTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	switch cfg.LLMProvider {
	case config.LLMGemini:
		return NewGeminiClient(cfg.LLMAPIKey, cfg.LLMModel, timeout)
	case config.LLMOpenAI:
		return NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMModel, timeout)
	case config.LLMOllama:
		return NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel, timeout)
	default:
		return Disabled{}
	}
}

// Disabled is the no-op Provider used when the LLM collaborator is turned
// off. Every method returns ErrDisabled immediately so callers can degrade
// without an extra nil check.
type Disabled struct{}

func (Disabled) Rewrite(context.Context, string) (string, error) { return "", ErrDisabled }
func (Disabled) Summarize(context.Context, string) (string, error) { return "", ErrDisabled }
func (Disabled) RerankAndSelect(context.Context, string, map[string]string) ([]string, error) {
	return nil, ErrDisabled
}

// WithTimeout runs fn with a context bounded by timeout, returning the
// zero value and the context's error if fn does not finish in time.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan T, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := fn(ctx)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- res
	}()

	select {
	case res := <-resultCh:
		return res, nil
	case err := <-errCh:
		return zero, err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
