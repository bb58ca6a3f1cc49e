package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justafolk/xtrc/internal/enrich"
	"github.com/justafolk/xtrc/pkg/types"
)

func TestScore_RouteQueryBoostsRouteChunk(t *testing.T) {
	query := "create endpoint for user account"
	terms := enrich.ExtractKeywords(query, query, "")
	signal := enrich.InferQuerySignal(query)

	routeChunk := types.Chunk{
		Symbol:      "CreateAccount",
		Kind:        types.ChunkRoute,
		HTTPMethod:  "post",
		Resource:    "account",
		IntentTags:  []string{"create_resource", "route_handler"},
		Keywords:    []string{"account", "create"},
	}
	plainChunk := types.Chunk{
		Symbol:   "Helper",
		Kind:     types.ChunkFunction,
		Keywords: []string{"account", "create"},
	}

	w := DefaultWeights()
	routeBreakdown := Score(query, terms, signal, Candidate{Chunk: routeChunk, VectorScore: 0.5}, w)
	plainBreakdown := Score(query, terms, signal, Candidate{Chunk: plainChunk, VectorScore: 0.5}, w)

	assert.Greater(t, Final(routeBreakdown), Final(plainBreakdown))
}

func TestScore_NegativeIntentPenalized(t *testing.T) {
	query := "seed initial admin user"
	terms := enrich.ExtractKeywords(query, query, "")
	signal := enrich.InferQuerySignal(query)

	seedChunk := types.Chunk{Symbol: "SeedAdmin", IntentTags: []string{"seed_data"}, Keywords: []string{"seed", "admin", "user"}}
	normalChunk := types.Chunk{Symbol: "CreateAdmin", Keywords: []string{"seed", "admin", "user"}}

	w := DefaultWeights()
	seedScore := Final(Score(query, terms, signal, Candidate{Chunk: seedChunk, VectorScore: 0.5}, w))
	normalScore := Final(Score(query, terms, signal, Candidate{Chunk: normalChunk, VectorScore: 0.5}, w))

	assert.Less(t, seedScore, normalScore)
}

func TestScore_ClampedToUnitInterval(t *testing.T) {
	chunk := types.Chunk{Symbol: "Foo", HTTPMethod: "post", IntentTags: []string{"create_resource", "route_handler"}}
	w := Weights{RouteBoost: 5, IntentBoost: 5, NoisePenalty: 1}
	score := Final(Score("create route", []string{"create", "route"}, enrich.InferQuerySignal("create route"), Candidate{Chunk: chunk, VectorScore: 1.0}, w))
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestNormalizeVectorScore(t *testing.T) {
	assert.InDelta(t, 0.75, normalizeVectorScore(0.75), 1e-9)
	assert.InDelta(t, 0.0, normalizeVectorScore(0), 1e-9)
	assert.InDelta(t, 1.0, normalizeVectorScore(1), 1e-9)
}
