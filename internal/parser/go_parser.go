package parser

import (
	"github.com/justafolk/xtrc/pkg/types"
)

// GoParser adapts the AST-based Parser to the LanguageParser interface,
// keeping only the declarations the chunk builder slices on: functions,
// methods, and named types. Fields, consts, and vars stay in Symbols for
// callers that want the fuller picture, but do not become their own nodes.
type GoParser struct {
	parser *Parser
}

// NewGoParser constructs a GoParser.
func NewGoParser() *GoParser {
	return &GoParser{parser: New()}
}

// Parse implements LanguageParser for registry dispatch. It parses the
// in-memory content via ParseSource and never reads relPath from disk.
func (g *GoParser) Parse(relPath string, content []byte) []types.NodeRange {
	return g.ParseSource(relPath, content)
}

// ParseSource parses in-memory Go source and returns one NodeRange per
// function, method, or named type declaration, in source order.
func (g *GoParser) ParseSource(relPath string, content []byte) []types.NodeRange {
	result, err := g.parser.parseBytes(relPath, content)
	if err != nil || result == nil {
		return wholeFileBlock(content)
	}

	nodes := make([]types.NodeRange, 0, len(result.Symbols))
	for _, sym := range result.Symbols {
		var kind types.NodeKind
		switch sym.Kind {
		case types.KindFunction:
			kind = types.NodeFunction
		case types.KindMethod:
			kind = types.NodeMethod
		case types.KindStruct, types.KindInterface, types.KindType:
			kind = types.NodeClass
		default:
			continue // fields, consts, vars are not chunk boundaries
		}
		nodes = append(nodes, types.NodeRange{
			Kind:      kind,
			Symbol:    sym.Name,
			Receiver:  sym.Receiver,
			StartLine: sym.Start.Line,
			EndLine:   sym.End.Line,
			DocText:   sym.DocComment,
		})
	}

	if len(nodes) == 0 {
		return wholeFileBlock(content)
	}
	return nodes
}

// SymbolsOf exposes the full Symbol list (including fields, consts, vars)
// for the enricher and metadata layers that want more than chunk boundaries.
func (g *GoParser) SymbolsOf(relPath string, content []byte) []types.Symbol {
	result, err := g.parser.parseBytes(relPath, content)
	if err != nil || result == nil {
		return nil
	}
	return result.Symbols
}

func wholeFileBlock(content []byte) []types.NodeRange {
	lines := countLines(content)
	if lines == 0 {
		lines = 1
	}
	return []types.NodeRange{{Kind: types.NodeBlock, StartLine: 1, EndLine: lines}}
}

func countLines(content []byte) int {
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	if len(content) > 0 && content[len(content)-1] == '\n' {
		n--
	}
	return n
}
