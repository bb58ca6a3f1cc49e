package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justafolk/xtrc/pkg/types"
)

func TestRerankPreservesMembership(t *testing.T) {
	results := []types.QueryResult{
		{ChunkID: "a", Content: "compute user score for account", Score: 0.4},
		{ChunkID: "b", Content: "unrelated logging helper", Score: 0.6},
	}
	out := NewLexicalReranker().Rerank("compute user score", results)
	require.Len(t, out, 2)
	ids := map[string]bool{out[0].ChunkID: true, out[1].ChunkID: true}
	assert.True(t, ids["a"] && ids["b"])
}

func TestRerankPromotesLexicalMatch(t *testing.T) {
	results := []types.QueryResult{
		{ChunkID: "low-overlap", Content: "totally unrelated content about widgets", Score: 0.55},
		{ChunkID: "high-overlap", Content: "recompute user score endpoint", Score: 0.50},
	}
	out := NewLexicalReranker().Rerank("recompute user score", results)
	assert.Equal(t, "high-overlap", out[0].ChunkID)
	assert.Equal(t, 1, out[0].Rank)
}

func TestRerankEmpty(t *testing.T) {
	assert.Empty(t, NewLexicalReranker().Rerank("q", nil))
}
