// Package scorer combines a candidate chunk's vector similarity, keyword
// overlap, symbol-name overlap, intent match, and structural-term overlap
// into a single relevance score, then applies heuristic multipliers for
// route-query matches, intent matches, and known-noise chunk kinds. The
// weights and multiplier values are grounded on the retrieval daemon's
// original hybrid scorer and ranking-heuristics modules.
package scorer

import (
	"sort"
	"strings"

	"github.com/justafolk/xtrc/internal/enrich"
	"github.com/justafolk/xtrc/pkg/types"
)

// Component weights. These sum to 1.0 and must not be renormalized per
// query: a query with no keyword overlap simply scores zero on that term.
const (
	VectorWeight     = 0.50
	KeywordWeight    = 0.18
	SymbolWeight     = 0.12
	IntentWeight     = 0.12
	StructuralWeight = 0.08
)

// Heuristic multiplier defaults, overridable via configuration.
const (
	DefaultRouteBoost   = 1.3
	DefaultIntentBoost  = 1.2
	DefaultNoisePenalty = 0.7
)

var negativeIntents = map[string]bool{
	"seed_data":        true,
	"migration_script": true,
	"test_script":      true,
	"script":           true,
}

var routeQueryHints = map[string]bool{
	"create": true, "post": true, "api": true, "endpoint": true, "route": true,
}

// Weights bundles the heuristic multipliers so callers can pass a
// configuration-derived override without threading three separate floats.
type Weights struct {
	RouteBoost   float64
	IntentBoost  float64
	NoisePenalty float64
}

// DefaultWeights returns the heuristic multipliers used absent
// configuration overrides.
func DefaultWeights() Weights {
	return Weights{RouteBoost: DefaultRouteBoost, IntentBoost: DefaultIntentBoost, NoisePenalty: DefaultNoisePenalty}
}

// Candidate is everything the scorer needs about one chunk: its vector
// similarity to the query (already computed by the vector store) plus its
// enrichment metadata.
type Candidate struct {
	Chunk       types.Chunk
	VectorScore float64 // raw cosine similarity or distance-derived score, may be outside [0,1]
}

// Score computes the final relevance score and its breakdown for one
// candidate against a query's terms and inferred intent signal.
func Score(query string, queryTerms []string, signal enrich.QuerySignal, cand Candidate, w Weights) types.ScoreBreakdown {
	vectorScore := normalizeVectorScore(cand.VectorScore)
	keywordScore := overlapScore(queryTerms, cand.Chunk.Keywords)
	symbolScore := symbolOverlapScore(queryTerms, cand.Chunk.Symbol)
	intentScore, matchedIntents := intentMatchScore(signal, cand.Chunk)
	structuralScore := structuralScore(signal.StructuralTerms, cand.Chunk)

	weightedSum := VectorWeight*vectorScore +
		KeywordWeight*keywordScore +
		SymbolWeight*symbolScore +
		IntentWeight*intentScore +
		StructuralWeight*structuralScore

	multiplier, matchedKeywords := heuristicMultiplier(query, signal, cand.Chunk, matchedIntents, w)

	return types.ScoreBreakdown{
		VectorScore:     vectorScore,
		KeywordScore:    keywordScore,
		SymbolScore:     symbolScore,
		IntentScore:     intentScore,
		StructuralScore: structuralScore,
		WeightedSum:     weightedSum,
		Multiplier:      multiplier,
		MatchedIntents:  matchedIntents,
		MatchedKeywords: matchedKeywords,
	}
}

// Final returns the clamped final score computed from a breakdown: the
// weighted sum times the heuristic multiplier, clamped to [0, 1] after
// multiplication, per the ranking design's resolution of clamp ordering.
func Final(b types.ScoreBreakdown) float64 {
	return clamp01(b.WeightedSum * b.Multiplier)
}

func normalizeVectorScore(v float64) float64 {
	if v >= 0 && v <= 1 {
		return v
	}
	return clamp01((v + 1) / 2)
}

func overlapScore(queryTerms, candidateTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	set := toSet(candidateTerms)
	matches := 0
	for _, t := range queryTerms {
		if set[t] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}

func symbolOverlapScore(queryTerms []string, symbol string) float64 {
	if symbol == "" || len(queryTerms) == 0 {
		return 0
	}
	symbolTerms := toSet(splitLower(symbol))
	matches := 0
	for _, t := range queryTerms {
		if symbolTerms[t] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}

func intentMatchScore(signal enrich.QuerySignal, chunk types.Chunk) (float64, []string) {
	if len(signal.Intents) == 0 {
		return 0, nil
	}
	tagSet := toSet(chunk.IntentTags)
	var matched []string
	for _, intent := range signal.Intents {
		tag := intent + "_resource"
		if tagSet[tag] {
			matched = append(matched, tag)
			continue
		}
		if chunk.HTTPMethod != "" && httpMethodImpliesIntent(chunk.HTTPMethod, intent) {
			matched = append(matched, tag)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	sort.Strings(matched)
	matched = dedupeSorted(matched)
	return float64(len(matched)) / float64(len(signal.Intents)), matched
}

func httpMethodImpliesIntent(method, intent string) bool {
	table := map[string]string{"post": "create", "put": "update", "patch": "update", "delete": "delete", "get": "read"}
	return table[strings.ToLower(method)] == intent
}

func structuralScore(queryStructuralTerms []string, chunk types.Chunk) float64 {
	if len(queryStructuralTerms) == 0 {
		return 0
	}
	terms := []string{}
	if chunk.HTTPMethod != "" {
		terms = append(terms, chunk.HTTPMethod)
	}
	if chunk.Resource != "" {
		terms = append(terms, chunk.Resource)
	}
	terms = append(terms, chunk.IntentTags...)
	if len(terms) == 0 {
		return 0
	}
	set := toSet(terms)
	matches := 0
	for _, t := range queryStructuralTerms {
		if set[t] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryStructuralTerms))
}

// heuristicMultiplier reproduces the reference implementation's decision
// order: start at 1.0, apply intent_boost when any intent matched, apply
// route_boost when the query hints at a route lookup and the chunk is a
// route chunk, and apply noise_penalty when the chunk carries a
// known-noise intent tag. Multipliers compose multiplicatively.
func heuristicMultiplier(query string, signal enrich.QuerySignal, chunk types.Chunk, matchedIntents []string, w Weights) (float64, []string) {
	multiplier := 1.0

	if len(matchedIntents) > 0 {
		multiplier *= w.IntentBoost
	}

	if queryHintsRoute(query) && isRouteChunk(chunk) {
		multiplier *= w.RouteBoost
	}

	if hasNegativeIntent(chunk.IntentTags) {
		multiplier *= w.NoisePenalty
	}

	matchedKeywords := matchedKeywords(signal.StructuralTerms, chunk)
	return multiplier, matchedKeywords
}

func queryHintsRoute(query string) bool {
	lower := strings.ToLower(query)
	for hint := range routeQueryHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func isRouteChunk(chunk types.Chunk) bool {
	if chunk.HTTPMethod != "" {
		return true
	}
	if chunk.Kind == types.ChunkRoute {
		return true
	}
	for _, tag := range chunk.IntentTags {
		if tag == "route_handler" {
			return true
		}
	}
	return false
}

func hasNegativeIntent(tags []string) bool {
	for _, t := range tags {
		if negativeIntents[t] {
			return true
		}
	}
	return false
}

// matchedKeywords returns the sorted overlap between query terms and the
// chunk's keywords/symbol/structural terms, capped at 8 entries for
// observability payloads.
func matchedKeywords(queryTerms []string, chunk types.Chunk) []string {
	candidateSet := toSet(chunk.Keywords)
	for _, t := range splitLower(chunk.Symbol) {
		candidateSet[t] = true
	}
	if chunk.HTTPMethod != "" {
		candidateSet[chunk.HTTPMethod] = true
	}
	if chunk.Resource != "" {
		candidateSet[chunk.Resource] = true
	}

	var matched []string
	for _, t := range queryTerms {
		if candidateSet[t] {
			matched = append(matched, t)
		}
	}
	sort.Strings(matched)
	if len(matched) > 8 {
		matched = matched[:8]
	}
	return matched
}

// dedupeSorted removes adjacent duplicates from an already-sorted slice.
func dedupeSorted(items []string) []string {
	out := items[:0]
	var prev string
	for i, it := range items {
		if i == 0 || it != prev {
			out = append(out, it)
			prev = it
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = true
	}
	return set
}

func splitLower(s string) []string {
	var out []string
	var cur strings.Builder
	for i, r := range s {
		if r == '_' || r == '-' {
			if cur.Len() > 0 {
				out = append(out, strings.ToLower(cur.String()))
				cur.Reset()
			}
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			if cur.Len() > 0 {
				out = append(out, strings.ToLower(cur.String()))
				cur.Reset()
			}
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, strings.ToLower(cur.String()))
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
