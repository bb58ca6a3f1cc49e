package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justafolk/xtrc/pkg/types"
)

func TestBuild_NoNodesProducesSingleBlock(t *testing.T) {
	content := "line one\nline two\nline three\n"
	chunks := New().Build("file.txt", content, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, types.ChunkBlock, chunks[0].Kind)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestBuild_MergesUndersizedSiblingNodes(t *testing.T) {
	content := strings.Join([]string{
		"package sample",
		"",
		"func A() {}",
		"func B() {}",
	}, "\n")
	nodes := []types.NodeRange{
		{Kind: types.NodeFunction, Symbol: "A", StartLine: 3, EndLine: 3},
		{Kind: types.NodeFunction, Symbol: "B", StartLine: 4, EndLine: 4},
	}
	chunks := New().Build("sample.go", content, nodes)
	// both functions are tiny; the merge pass should combine them into one chunk
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "func A")
	assert.Contains(t, chunks[0].Content, "func B")
}

func TestBuild_SplitsOversizedDraft(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString("x := computeSomethingVeryLong(argumentOne, argumentTwo, argumentThree)\n")
	}
	content := b.String()
	nodes := []types.NodeRange{{Kind: types.NodeFunction, Symbol: "Big", StartLine: 1, EndLine: 400}}

	chunks := New().Build("big.go", content, nodes)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Tokens, defaultMaxTokens)
	}
}

func TestBuild_ComputesContentHash(t *testing.T) {
	chunks := New().Build("f.go", "package f\n", nil)
	require.Len(t, chunks, 1)
	assert.NotEmpty(t, chunks[0].ContentHash)
	assert.Len(t, chunks[0].ContentHash, 64) // hex sha256
}

func TestEstimateTokens(t *testing.T) {
	// foo, (, bar, ,, 1, )
	assert.Equal(t, 6, EstimateTokens("foo(bar, 1)"))
}
