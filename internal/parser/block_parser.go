package parser

import "github.com/justafolk/xtrc/pkg/types"

// BlockParser is the language-agnostic fallback: it treats an entire file as
// a single block, letting the chunk builder's own line-based splitting
// handle files whose language has no structural parser.
type BlockParser struct{}

// NewBlockParser constructs a BlockParser.
func NewBlockParser() *BlockParser {
	return &BlockParser{}
}

// Parse implements LanguageParser by returning one NodeBlock spanning the
// whole file.
func (b *BlockParser) Parse(_ string, content []byte) []types.NodeRange {
	return wholeFileBlock(content)
}
