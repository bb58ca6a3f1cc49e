// Package chunker divides parsed source into token-bounded chunks for
// embedding and retrieval.
//
// # Basic Usage
//
//	c := chunker.New()
//	nodes := registry.Parse("service.go", content)
//	chunks := c.Build("service.go", string(content), nodes)
//
// # Chunking Strategy
//
// Chunks are built from a file's parsed NodeRanges: each function, method,
// or type declaration starts as its own draft. Drafts larger than the
// maximum token budget are split by accumulating lines until the target
// token count is reached; drafts smaller than the minimum are merged with a
// neighboring draft when the gap between them is small enough that they
// plausibly belong together.
//
// # Chunk Sizing
//
// Token budget (overridable via configuration):
//   - Minimum: 200 tokens
//   - Target: 500 tokens
//   - Maximum: 800 tokens
//
// Token estimation counts identifier runs, digit runs, and individual
// punctuation characters — see EstimateTokens.
//
// # Content Hashing
//
// Each chunk computes a SHA-256 hash of its content:
//
//	chunk.ComputeContentHash()
//
// This lets the indexer skip re-embedding chunks whose content is unchanged
// from a previous run.
package chunker
