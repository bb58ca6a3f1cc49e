package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justafolk/xtrc/pkg/types"
)

func TestExtractRouteSignal_GoMux(t *testing.T) {
	text := `router.HandleFunc("/users/{id}/score", GetUserScore).Methods("GET")`
	signal, ok := ExtractRouteSignal(text, "GetUserScore")
	assert.True(t, ok)
	assert.Equal(t, "get", signal.Method)
	assert.Equal(t, "read", signal.Intent)
	assert.Equal(t, "score", signal.Resource)
}

func TestExtractRouteSignal_SymbolFallback(t *testing.T) {
	signal, ok := ExtractRouteSignal("no route markers here", "HandlePostUserScore")
	assert.True(t, ok)
	assert.Equal(t, "post", signal.Method)
}

func TestExtractRouteSignal_NoSignal(t *testing.T) {
	_, ok := ExtractRouteSignal("plain helper text", "ComputeScore")
	assert.False(t, ok)
}

func TestExtract_TaggingAndKeywords(t *testing.T) {
	meta := Extract(
		"internal/api/user_score.go",
		types.ChunkFunction,
		"GetUserScore",
		`router.HandleFunc("/users/{id}/score", GetUserScore).Methods("GET")`,
	)
	assert.True(t, meta.IsRouteHandler)
	assert.Equal(t, "get", meta.RouteMethod)
	assert.Contains(t, meta.IntentTags, "route_handler")
	assert.Contains(t, meta.IntentTags, "read_resource")
	assert.Contains(t, meta.Keywords, "score")
	assert.Contains(t, meta.Keywords, "user")
}

func TestExtract_SeedAndTestPathTagging(t *testing.T) {
	meta := Extract("db/seed/users_seed.go", types.ChunkBlock, "", "insert into users")
	assert.Contains(t, meta.IntentTags, "seed_data")

	meta = Extract("internal/foo/foo_test.go", types.ChunkFunction, "TestFoo", "assert.Equal")
	assert.Contains(t, meta.IntentTags, "test_script")
}

func TestInferQuerySignal(t *testing.T) {
	sig := InferQuerySignal("how do I create a new user account")
	assert.Contains(t, sig.Intents, "create")
	assert.Contains(t, sig.StructuralTerms, "account")
}
