package enrich

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/justafolk/xtrc/pkg/types"
)

// Metadata is everything the enricher derives from one chunk: its intent
// tags, extracted keywords, and (if applicable) route signal.
type Metadata struct {
	IntentTags     []string
	Keywords       []string
	RouteMethod    string
	RoutePath      string
	RouteIntent    string
	RouteResource  string
	IsRouteHandler bool
}

var (
	seedHints      = []string{"seed", "fixture", "factory"}
	migrationHints = []string{"migration", "migrate"}
	testHints      = []string{"_test", "test_", "/tests/", "/test/"}
	scriptHints    = []string{"/scripts/", "/cmd/", "script"}
	loggingHints   = []string{"log.", "logger.", "logging"}
	analyticsHints = []string{"analytics", "telemetry", "metrics."}
)

// Extract derives Metadata for one chunk given its file path, symbol kind,
// symbol name, and source text.
func Extract(path string, kind types.ChunkKind, symbol, text string) Metadata {
	lowerPath := strings.ToLower(path)
	lowerText := strings.ToLower(text)

	tags := map[string]bool{}

	if hasAny(lowerPath, seedHints) {
		tags["seed_data"] = true
	}
	if hasAny(lowerPath, migrationHints) {
		tags["migration_script"] = true
	}
	if hasAny(lowerPath, testHints) {
		tags["test_script"] = true
	}
	if hasAny(lowerPath, scriptHints) && !tags["test_script"] {
		tags["script"] = true
	}
	if hasAny(lowerText, loggingHints) {
		tags["logging"] = true
	}
	if hasAny(lowerText, analyticsHints) {
		tags["analytics"] = true
	}

	meta := Metadata{}

	if signal, ok := ExtractRouteSignal(text, symbol); ok {
		meta.RouteMethod = signal.Method
		meta.RoutePath = signal.Path
		meta.RouteIntent = signal.Intent
		meta.RouteResource = signal.Resource
		meta.IsRouteHandler = true
		tags["route_handler"] = true
		if signal.Intent != "" {
			tags[signal.Intent+"_resource"] = true
		}
	} else if intent, ok := intentFromSymbol(symbol); ok {
		tags[intent+"_resource"] = true
	}

	meta.IntentTags = sortedKeys(tags)
	meta.Keywords = ExtractKeywords(symbol, text, filepath.Base(path))
	return meta
}

func intentFromSymbol(symbol string) (string, bool) {
	words := splitIdentifier(symbol)
	lowerWords := make([]string, len(words))
	for i, w := range words {
		lowerWords[i] = strings.ToLower(w)
	}
	for intent, aliases := range intentAliases {
		for _, w := range lowerWords {
			for _, alias := range aliases {
				if w == alias {
					return intent, true
				}
			}
		}
	}
	return "", false
}

func hasAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// ExtractKeywords tokenizes an identifier, its source text, and a file
// basename into a deduplicated, sorted list of lowercase terms longer than
// one character, filtered against a small stopword list.
func ExtractKeywords(symbol, text, basename string) []string {
	seen := map[string]bool{}
	var out []string

	add := func(word string) {
		lower := strings.ToLower(word)
		if len(lower) <= 1 || stopTerms[lower] || seen[lower] {
			return
		}
		seen[lower] = true
		out = append(out, lower)
	}

	for _, w := range splitIdentifier(symbol) {
		add(w)
	}
	for _, w := range splitIdentifier(strings.TrimSuffix(basename, filepath.Ext(basename))) {
		add(w)
	}
	for _, m := range identifierWord.FindAllString(text, -1) {
		add(m)
	}

	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// QuerySignal is the intent inference performed on an incoming query string.
type QuerySignal struct {
	Intents         []string
	Methods         []string
	StructuralTerms []string
}

// InferQuerySignal extracts the same intent/method vocabulary from a query
// string that Extract derives from source, so the scorer can compare query
// intent against chunk intent directly.
func InferQuerySignal(query string) QuerySignal {
	lower := strings.ToLower(query)
	intentSet := map[string]bool{}
	methodSet := map[string]bool{}

	for intent, aliases := range intentAliases {
		for _, alias := range aliases {
			if containsWord(lower, alias) {
				intentSet[intent] = true
			}
		}
	}
	for method, intent := range httpIntentMap {
		if containsWord(lower, method) {
			methodSet[method] = true
			intentSet[intent] = true
		}
	}

	terms := ExtractKeywords(query, query, "")

	return QuerySignal{
		Intents:         sortedKeys(intentSet),
		Methods:         sortedKeys(methodSet),
		StructuralTerms: terms,
	}
}

func containsWord(haystack, word string) bool {
	for _, w := range strings.Fields(strings.ReplaceAll(haystack, "-", " ")) {
		if strings.Trim(w, ".,!?:;") == word {
			return true
		}
	}
	return false
}
