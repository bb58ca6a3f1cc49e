package types

// NodeKind is the language-agnostic structural classification a
// LanguageParser assigns to a parsed span of source.
type NodeKind string

const (
	NodeFunction NodeKind = "function"
	NodeMethod   NodeKind = "method"
	NodeClass    NodeKind = "class"
	NodeBlock    NodeKind = "block"
)

// NodeRange is the output of a LanguageParser: one contiguous span of source
// text with enough structural metadata for the chunk builder to slice it
// into a Chunk without needing to re-parse the file. Parsers that cannot
// identify structure at all (an unsupported language, or a parse failure)
// emit a single NodeBlock spanning the whole file.
type NodeRange struct {
	Kind      NodeKind
	Symbol    string // empty for NodeBlock
	Receiver  string // set only for NodeMethod
	StartLine int    // 1-based, inclusive
	EndLine   int    // 1-based, inclusive
	DocText   string // leading comment/docstring, if any
}

// ToChunkKind maps a parser-level NodeKind onto the retrieval-level
// ChunkKind. Route detection happens later, in the intent enricher, since it
// depends on the node's source text rather than its structural shape.
func (k NodeKind) ToChunkKind() ChunkKind {
	switch k {
	case NodeFunction:
		return ChunkFunction
	case NodeMethod:
		return ChunkMethod
	case NodeClass:
		return ChunkClass
	default:
		return ChunkBlock
	}
}
