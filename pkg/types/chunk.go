package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ChunkKind is the retrieval-atom classification used throughout scoring and
// enrichment.
type ChunkKind string

const (
	ChunkFunction ChunkKind = "function"
	ChunkMethod   ChunkKind = "method"
	ChunkClass    ChunkKind = "class"
	ChunkRoute    ChunkKind = "route"
	ChunkBlock    ChunkKind = "block"
)

// Chunk is the atomic retrieval unit: a token-bounded slice of one file's
// source, its structural metadata, and the enrichment tags the intent
// enricher derives from it.
type Chunk struct {
	// RowID is the metadata store's internal primary key; zero until persisted.
	RowID int64
	// FileID is the metadata store's file row this chunk belongs to.
	FileID int64

	// ChunkID is a stable digest of (repo_id, path, start_line, end_line,
	// symbol, content_hash) — stable across runs while the source is
	// unchanged, and the identity used by the vector store.
	ChunkID string

	Path      string // repo-relative
	StartLine int    // 1-based, inclusive
	EndLine   int    // 1-based, inclusive
	Symbol    string // primary symbol name, empty for generic blocks
	Kind      ChunkKind

	Content     string // chunk source text; never sent to the embedder
	ContentHash string // hex sha256 of Content
	Tokens      int

	Description string // short human-readable pointer, always present
	Summary     string // optional LLM summary, <= configured max chars

	IntentTags []string // closed vocabulary, sorted, deduped
	Keywords   []string // extracted identifiers/tokens, sorted, deduped

	HTTPMethod string // populated only for kind=route
	Resource   string // populated only for kind=route
}

// ComputeContentHash sets ContentHash from Content.
func (c *Chunk) ComputeContentHash() {
	sum := sha256.Sum256([]byte(c.Content))
	c.ContentHash = hex.EncodeToString(sum[:])
}

// ComputeChunkID derives ChunkID from the fields the specification names as
// its identity: repo, path, line range, symbol, and content hash. Called
// once ContentHash has been computed.
func (c *Chunk) ComputeChunkID(repoID string) {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s|%s", repoID, c.Path, c.StartLine, c.EndLine, c.Symbol, c.ContentHash)
	c.ChunkID = hex.EncodeToString(h.Sum(nil))
}

// EmbeddingText builds the canonical multi-line embedding input block.
// Raw source is never included — only semantic metadata, per the
// specification's embedding-input contract.
func (c *Chunk) EmbeddingText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", c.Path)
	symbol := c.Symbol
	if symbol == "" {
		symbol = "(none)"
	}
	fmt.Fprintf(&b, "Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "Type: %s\n", c.Kind)
	if len(c.IntentTags) > 0 {
		fmt.Fprintf(&b, "Intent: %s\n", strings.Join(c.IntentTags, ";"))
	}
	if c.HTTPMethod != "" {
		fmt.Fprintf(&b, "HTTP method: %s\n", c.HTTPMethod)
	}
	if c.Resource != "" {
		fmt.Fprintf(&b, "Resource: %s\n", c.Resource)
	}
	summary := c.Summary
	if summary == "" {
		summary = c.Description
	}
	fmt.Fprintf(&b, "Summary: %s\n", summary)
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(c.Keywords, " "))
	return b.String()
}

// Validate checks the invariants the specification places on a chunk:
// non-empty content, a well-formed line range, and a recognized kind.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 || c.StartLine > c.EndLine {
		return errors.New("chunk line range is invalid")
	}
	switch c.Kind {
	case ChunkFunction, ChunkMethod, ChunkClass, ChunkRoute, ChunkBlock:
	default:
		return fmt.Errorf("invalid chunk kind %q", c.Kind)
	}
	return nil
}

// IsRoute reports whether this chunk represents an HTTP route handler.
func (c *Chunk) IsRoute() bool {
	return c.Kind == ChunkRoute || c.HTTPMethod != ""
}
