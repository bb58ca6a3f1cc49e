package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justafolk/xtrc/internal/config"
)

func TestNewReturnsDisabledWhenUseLLMFalse(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UseLLM = false
	p := New(cfg)
	_, ok := p.(Disabled)
	assert.True(t, ok)
}

func TestNewDispatchesByProvider(t *testing.T) {
	cases := []struct {
		provider config.LLMProvider
		want     interface{}
	}{
		{config.LLMGemini, &GeminiClient{}},
		{config.LLMOpenAI, &OpenAIClient{}},
		{config.LLMOllama, &OllamaClient{}},
	}
	for _, tc := range cases {
		cfg := config.DefaultConfig()
		cfg.UseLLM = true
		cfg.LLMProvider = tc.provider
		cfg.LLMAPIKey = "test-key"
		p := New(cfg)
		assert.IsType(t, tc.want, p)
	}
}

func TestDisabledReturnsErrDisabled(t *testing.T) {
	var d Disabled
	_, err := d.Rewrite(context.Background(), "q")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = d.Summarize(context.Background(), "c")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = d.RerankAndSelect(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestWithTimeoutReturnsResult(t *testing.T) {
	res, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func TestWithTimeoutExpires(t *testing.T) {
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.Error(t, err)
}

func TestParseRerankReply(t *testing.T) {
	candidates := map[string]string{
		"a": "alpha chunk",
		"b": "beta chunk",
		"c": "gamma chunk",
	}
	prompt := buildRerankPrompt("q", candidates)
	assert.Contains(t, prompt, "1.")

	ids, err := parseRerankReply("3, 1", candidates)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestParseRerankReplyNoParseableNumbers(t *testing.T) {
	_, err := parseRerankReply("not a list", map[string]string{"a": "x"})
	assert.Error(t, err)
}
