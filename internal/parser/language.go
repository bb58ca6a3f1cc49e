package parser

import (
	"path/filepath"
	"strings"

	"github.com/justafolk/xtrc/pkg/types"
)

// LanguageParser turns file content into a list of structural spans. Every
// implementation must be safe to call from multiple goroutines with
// independent inputs, since the indexer parses files concurrently.
type LanguageParser interface {
	// Parse returns the structural spans found in content. It never fails:
	// a parser that cannot make sense of its input falls back to returning
	// a single whole-file NodeBlock.
	Parse(relPath string, content []byte) []types.NodeRange
}

// Registry dispatches to a LanguageParser by file extension, falling back to
// a language-agnostic whole-file parser for anything it does not recognize.
type Registry struct {
	byExt    map[string]LanguageParser
	fallback LanguageParser
}

// NewRegistry builds the default registry: an AST-backed parser for Go, and
// the line-based fallback for everything else.
func NewRegistry() *Registry {
	return &Registry{
		byExt: map[string]LanguageParser{
			".go": NewGoParser(),
		},
		fallback: NewBlockParser(),
	}
}

// Parse dispatches relPath to the parser registered for its extension.
func (r *Registry) Parse(relPath string, content []byte) []types.NodeRange {
	ext := strings.ToLower(filepath.Ext(relPath))
	if p, ok := r.byExt[ext]; ok {
		return p.Parse(relPath, content)
	}
	return r.fallback.Parse(relPath, content)
}
