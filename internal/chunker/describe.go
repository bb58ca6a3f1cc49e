package chunker

import (
	"fmt"

	"github.com/justafolk/xtrc/pkg/types"
)

// Describe builds a short human-readable pointer for a chunk, varying by
// kind the way the reference chunk builder's description text does: a
// class gets "Type X", a route gets its resource name, a function gets its
// name, and an unstructured block gets its line range. Exported so callers
// that reclassify a chunk's Kind after Build (e.g. promoting it to
// ChunkRoute once a route signal is detected) can refresh Description to
// match.
func Describe(c types.Chunk) string {
	switch c.Kind {
	case types.ChunkClass:
		return fmt.Sprintf("Type %s (lines %d-%d)", c.Symbol, c.StartLine, c.EndLine)
	case types.ChunkRoute:
		if c.Resource != "" {
			return fmt.Sprintf("Route handler %s for %s (lines %d-%d)", c.Symbol, c.Resource, c.StartLine, c.EndLine)
		}
		return fmt.Sprintf("Route handler %s (lines %d-%d)", c.Symbol, c.StartLine, c.EndLine)
	case types.ChunkMethod:
		return fmt.Sprintf("Method %s (lines %d-%d)", c.Symbol, c.StartLine, c.EndLine)
	case types.ChunkFunction:
		return fmt.Sprintf("Function %s (lines %d-%d)", c.Symbol, c.StartLine, c.EndLine)
	default:
		return fmt.Sprintf("Block of %s (lines %d-%d)", c.Path, c.StartLine, c.EndLine)
	}
}
