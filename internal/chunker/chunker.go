// Package chunker splits parsed source into token-bounded chunks. The
// splitting and merging thresholds and the line-gap rule for combining
// adjacent small drafts are grounded on the retrieval daemon's original
// Python chunk builder: small symbols get merged together, oversized ones
// get split by accumulating lines until a target token budget is reached.
package chunker

import (
	"sort"
	"strings"

	"github.com/justafolk/xtrc/pkg/types"
)

const (
	defaultMinTokens    = 200
	defaultMaxTokens    = 800
	defaultTargetTokens = 500
	mergeLineGap        = 40
)

// Chunker builds Chunks from a file's parsed NodeRanges.
type Chunker struct {
	minTokens    int
	maxTokens    int
	targetTokens int
}

// New returns a Chunker configured with the default token budget.
func New() *Chunker {
	return &Chunker{minTokens: defaultMinTokens, maxTokens: defaultMaxTokens, targetTokens: defaultTargetTokens}
}

// NewWithBudget returns a Chunker configured with an explicit token budget,
// as read from configuration.
func NewWithBudget(min, max, target int) *Chunker {
	if min <= 0 {
		min = defaultMinTokens
	}
	if max <= min {
		max = defaultMaxTokens
	}
	if target <= 0 || target > max {
		target = defaultTargetTokens
	}
	return &Chunker{minTokens: min, maxTokens: max, targetTokens: target}
}

// draft is an in-progress chunk before its content hash and ID are computed.
type draft struct {
	kind      types.ChunkKind
	symbol    string
	startLine int
	endLine   int
	text      string
}

// Build slices content into Chunks along the boundaries nodes describe,
// splitting anything over the max token budget and merging anything under
// the min token budget with its neighbors.
func (c *Chunker) Build(path string, content string, nodes []types.NodeRange) []types.Chunk {
	lines := splitLines(content)

	drafts := c.initialDrafts(lines, nodes)
	drafts = c.splitLargeDrafts(drafts)
	drafts = c.mergeSmallDrafts(drafts)

	chunks := make([]types.Chunk, 0, len(drafts))
	for _, d := range drafts {
		chunk := types.Chunk{
			Path:      path,
			StartLine: d.startLine,
			EndLine:   d.endLine,
			Symbol:    d.symbol,
			Kind:      d.kind,
			Content:   d.text,
			Tokens:    EstimateTokens(d.text),
		}
		chunk.Description = Describe(chunk)
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (c *Chunker) initialDrafts(lines []string, nodes []types.NodeRange) []draft {
	if len(nodes) == 0 {
		return []draft{{kind: types.ChunkBlock, startLine: 1, endLine: len(lines), text: joinLines(lines, 1, len(lines))}}
	}

	sorted := make([]types.NodeRange, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartLine < sorted[j].StartLine })

	drafts := make([]draft, 0, len(sorted))
	for _, n := range sorted {
		start, end := clampRange(n.StartLine, n.EndLine, len(lines))
		symbol := n.Symbol
		if n.Receiver != "" {
			symbol = n.Receiver + "." + symbol
		}
		drafts = append(drafts, draft{
			kind:      n.Kind.ToChunkKind(),
			symbol:    symbol,
			startLine: start,
			endLine:   end,
			text:      joinLines(lines, start, end),
		})
	}
	return drafts
}

// splitLargeDrafts splits any draft whose token count exceeds maxTokens into
// several smaller drafts, accumulating lines until the target token count is
// reached, and force-flushing at the max.
func (c *Chunker) splitLargeDrafts(drafts []draft) []draft {
	out := make([]draft, 0, len(drafts))
	for _, d := range drafts {
		if EstimateTokens(d.text) <= c.maxTokens {
			out = append(out, d)
			continue
		}
		out = append(out, c.splitByLines(d)...)
	}
	return out
}

func (c *Chunker) splitByLines(d draft) []draft {
	lines := splitLines(d.text)
	var pieces []draft
	curStart := d.startLine
	var curLines []string
	curTokens := 0

	flush := func(endLine int) {
		if len(curLines) == 0 {
			return
		}
		pieces = append(pieces, draft{
			kind:      d.kind,
			symbol:    d.symbol,
			startLine: curStart,
			endLine:   endLine,
			text:      strings.Join(curLines, "\n"),
		})
		curLines = nil
		curTokens = 0
	}

	for i, line := range lines {
		lineNo := d.startLine + i
		tokens := EstimateTokens(line)
		projected := curTokens + tokens

		if projected > c.targetTokens && curTokens >= c.minTokens {
			flush(lineNo - 1)
			curStart = lineNo
		}

		curLines = append(curLines, line)
		curTokens += tokens

		if curTokens >= c.maxTokens {
			flush(lineNo)
			curStart = lineNo + 1
		}
	}
	flush(d.startLine + len(lines) - 1)

	if len(pieces) == 0 {
		return []draft{d}
	}
	return pieces
}

// mergeSmallDrafts buffers drafts under minTokens and merges them with
// adjacent drafts when the combined size still fits under maxTokens and the
// line gap between them is small enough that they plausibly belong together.
func (c *Chunker) mergeSmallDrafts(drafts []draft) []draft {
	if len(drafts) == 0 {
		return drafts
	}

	var out []draft
	buffer := drafts[0]

	for _, next := range drafts[1:] {
		bufferTokens := EstimateTokens(buffer.text)
		if bufferTokens >= c.minTokens {
			out = append(out, buffer)
			buffer = next
			continue
		}

		combinedTokens := bufferTokens + EstimateTokens(next.text)
		gap := next.startLine - buffer.endLine
		if combinedTokens <= c.maxTokens && gap <= mergeLineGap {
			buffer = mergeDrafts(buffer, next)
			continue
		}

		out = append(out, buffer)
		buffer = next
	}

	// Tail-merge pass: if the trailing buffer is still small, attach it to
	// the previous chunk rather than emitting an undersized chunk alone.
	if EstimateTokens(buffer.text) < c.minTokens && len(out) > 0 {
		last := out[len(out)-1]
		if EstimateTokens(last.text)+EstimateTokens(buffer.text) <= c.maxTokens {
			out[len(out)-1] = mergeDrafts(last, buffer)
			return out
		}
	}

	out = append(out, buffer)
	return out
}

func mergeDrafts(a, b draft) draft {
	kind := a.kind
	symbol := a.symbol
	if symbol == "" {
		symbol = b.symbol
	} else if b.symbol != "" && b.symbol != a.symbol {
		symbol = a.symbol + "+" + b.symbol
	}
	if kind == types.ChunkBlock {
		kind = b.kind
	}
	return draft{
		kind:      kind,
		symbol:    symbol,
		startLine: a.startLine,
		endLine:   b.endLine,
		text:      a.text + "\n" + b.text,
	}
}

func clampRange(start, end, total int) (int, int) {
	if start < 1 {
		start = 1
	}
	if end > total {
		end = total
	}
	if end < start {
		end = start
	}
	return start, end
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func joinLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
