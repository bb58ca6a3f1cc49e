// Package rerank optionally reorders a query's top candidates using a
// cross-encoder-style relevance signal that jointly considers the query and
// each candidate's text, rather than each independently. No cross-encoder
// model or client library exists anywhere in the pack this daemon was
// grounded on, so LexicalReranker stands in as a deterministic, dependency-
// free approximation: a normalized token-overlap score blended with the
// upstream score exactly the way a real cross-encoder's output would be.
package rerank

import (
	"sort"
	"strings"

	"github.com/justafolk/xtrc/pkg/types"
)

// Reranker reorders results using a signal that considers the full query
// and candidate text jointly.
type Reranker interface {
	// Rerank returns results re-scored and re-sorted by the blended score.
	// It must not change the length or membership of results.
	Rerank(query string, results []types.QueryResult) []types.QueryResult
}

// BlendWeight is the fraction of the final rerank score attributed to the
// cross-encoder-style signal; the remainder keeps the upstream hybrid
// score, so a reranker with a weak signal cannot fully override upstream
// ranking.
const BlendWeight = 0.6

// LexicalReranker approximates a cross-encoder with normalized token
// overlap between the query and each candidate's content.
type LexicalReranker struct{}

// NewLexicalReranker constructs the stand-in reranker.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

// Rerank implements Reranker.
func (r *LexicalReranker) Rerank(query string, results []types.QueryResult) []types.QueryResult {
	if len(results) == 0 {
		return results
	}

	queryTerms := tokenize(query)
	ceScores := make([]float64, len(results))
	for i, res := range results {
		ceScores[i] = overlapRatio(queryTerms, tokenize(res.Content))
	}
	rankNorm := normalizeByRank(ceScores)

	out := make([]types.QueryResult, len(results))
	copy(out, results)
	for i := range out {
		out[i].Score = clamp01(BlendWeight*rankNorm[i] + (1-BlendWeight)*out[i].Score)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// normalizeByRank converts raw scores to [0,1] by rank position rather than
// raw magnitude, since a lexical-overlap score has no natural scale to
// compare against a vector similarity score.
func normalizeByRank(scores []float64) []float64 {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })

	norm := make([]float64, n)
	for rank, i := range idx {
		if n == 1 {
			norm[i] = 1
			continue
		}
		norm[i] = 1 - float64(rank)/float64(n-1)
	}
	return norm
}

func overlapRatio(queryTerms, candidateTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	set := make(map[string]bool, len(candidateTerms))
	for _, t := range candidateTerms {
		set[t] = true
	}
	matches := 0
	for _, t := range queryTerms {
		if set[t] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
