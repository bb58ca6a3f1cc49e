package llm

import (
	"fmt"
	"sort"
	"strings"
)

const rewriteSystemPrompt = "You expand short or ambiguous code search queries into a few additional " +
	"keywords likely to appear in source identifiers, comments, or route paths. " +
	"Reply with the expanded query only, no explanation."

const summarizeSystemPrompt = "You summarize a source code chunk in one or two plain sentences describing " +
	"what it does and, if it is an HTTP route handler, what it exposes. Reply with the summary only."

const rerankSystemPrompt = "You are given a query and a numbered list of candidate code chunks. Reply with " +
	"the candidate numbers ordered from most to least relevant to the query, comma-separated, most relevant first. " +
	"Reply with the numbers only, no explanation."

// buildRerankPrompt renders candidates as a numbered list keyed by a stable
// sort of their IDs, so the same candidate set always produces the same
// prompt regardless of map iteration order.
func buildRerankPrompt(query string, candidates map[string]string) string {
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for i, id := range ids {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(candidates[id], 400))
	}
	return b.String()
}

// parseRerankReply maps a comma-separated list of 1-based candidate numbers
// back to candidate IDs, using the same stable ordering buildRerankPrompt
// used to number them. Numbers that don't parse or are out of range are
// skipped rather than treated as a hard error, since a partially malformed
// reply is still useful.
func parseRerankReply(reply string, candidates map[string]string) ([]string, error) {
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == '\n' || r == ' ' || r == '\t'
	})

	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, f := range fields {
		var n int
		if _, err := fmt.Sscanf(f, "%d", &n); err != nil {
			continue
		}
		if n < 1 || n > len(ids) {
			continue
		}
		id := ids[n-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("rerank reply contained no parseable candidate numbers")
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
