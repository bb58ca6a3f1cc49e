// Package enrich derives intent tags, keywords, and HTTP route metadata
// from a chunk's source text and symbol name. It is the Go counterpart of
// the route-signal and intent-tagging heuristics used to bias retrieval
// toward the kind of code a query is actually asking about.
package enrich

import (
	"regexp"
	"strings"
)

// httpIntentMap maps an HTTP method to the CRUD-style intent it implies.
var httpIntentMap = map[string]string{
	"post":   "create",
	"put":    "update",
	"patch":  "update",
	"delete": "delete",
	"get":    "read",
}

// intentAliases lists synonym verbs recognized for each canonical intent,
// used both for symbol-name matching and query-side intent inference.
var intentAliases = map[string][]string{
	"create": {"create", "add", "new", "insert", "register", "make"},
	"update": {"update", "edit", "modify", "patch", "set", "change", "recompute", "refresh"},
	"delete": {"delete", "remove", "destroy", "purge", "cancel"},
	"read":   {"get", "list", "fetch", "read", "find", "lookup", "show"},
}

var stopTerms = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "and": true,
	"or": true, "in": true, "on": true, "for": true, "with": true, "by": true,
	"is": true, "it": true, "at": true,
}

var (
	jsRouteRe      = regexp.MustCompile(`(?i)\.\s*(get|post|put|delete|patch)\s*\(\s*['"]([^'"]+)['"]`)
	pyDecoratorRe  = regexp.MustCompile(`(?i)@\w*\.\s*(get|post|put|delete|patch)\s*\(\s*['"]([^'"]+)['"]`)
	goRouterRe     = regexp.MustCompile(`(?i)\.\s*(?:HandleFunc|Handle|Get|Post|Put|Delete|Patch)\s*\(\s*"([^"]+)"`)
	genericMethod  = regexp.MustCompile(`(?i)\b(get|post|put|delete|patch)\b`)
	identifierWord = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// RouteSignal is the HTTP-facing metadata extracted from one chunk of
// source text.
type RouteSignal struct {
	Method          string
	Intent          string
	Resource        string
	Path            string
	StructuralTerms []string
}

// ExtractRouteSignal inspects text and symbol for HTTP route registration
// patterns (JS-style method chains, Python decorators, Go mux registrations)
// and, failing that, a verb prefix on the symbol name itself. It returns
// false when no route signal can be inferred.
func ExtractRouteSignal(text, symbol string) (RouteSignal, bool) {
	if m := jsRouteRe.FindStringSubmatch(text); m != nil {
		return buildRouteSignal(m[1], m[2], symbol), true
	}
	if m := pyDecoratorRe.FindStringSubmatch(text); m != nil {
		return buildRouteSignal(m[1], m[2], symbol), true
	}
	if m := goRouterRe.FindStringSubmatch(text); m != nil {
		method := "get"
		if gm := genericMethod.FindString(text); gm != "" {
			method = strings.ToLower(gm)
		}
		return buildRouteSignal(method, m[1], symbol), true
	}

	// Fall back to symbol-name verb detection: HandleGetUser, PostOrder, etc.
	if method, ok := methodFromSymbol(symbol); ok {
		return buildRouteSignal(method, "", symbol), true
	}

	return RouteSignal{}, false
}

func methodFromSymbol(symbol string) (string, bool) {
	lower := strings.ToLower(symbol)
	for _, method := range []string{"get", "post", "put", "delete", "patch"} {
		if strings.HasPrefix(lower, method) || strings.Contains(lower, "handle"+method) {
			return method, true
		}
	}
	return "", false
}

func buildRouteSignal(method, path, symbol string) RouteSignal {
	method = strings.ToLower(method)
	intent := httpIntentMap[method]
	resource := extractResource(path, symbol)

	terms := []string{method, intent}
	if resource != "" {
		terms = append(terms, resource)
	}

	return RouteSignal{
		Method:          method,
		Intent:          intent,
		Resource:        resource,
		Path:            path,
		StructuralTerms: dedupeSorted(terms),
	}
}

// extractResource derives a singular resource name from a route path, or
// from the symbol name when no path is available.
func extractResource(path, symbol string) string {
	if path != "" {
		segs := pathSegments(path)
		if len(segs) > 0 {
			return singularize(segs[len(segs)-1])
		}
	}
	return resourceFromSymbol(symbol)
}

func pathSegments(path string) []string {
	var segs []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") || strings.HasPrefix(seg, ":") {
			continue
		}
		segs = append(segs, seg)
	}
	return segs
}

func resourceFromSymbol(symbol string) string {
	words := splitIdentifier(symbol)
	for _, verbSet := range intentAliases {
		for _, w := range words {
			for _, v := range verbSet {
				if strings.EqualFold(w, v) {
					goto matched
				}
			}
		}
	}
matched:
	var rest []string
	skip := true
	for _, w := range words {
		lower := strings.ToLower(w)
		if skip && isKnownVerb(lower) {
			continue
		}
		skip = false
		if !stopTerms[lower] {
			rest = append(rest, strings.ToLower(w))
		}
	}
	if len(rest) == 0 {
		return ""
	}
	return singularize(rest[len(rest)-1])
}

func isKnownVerb(word string) bool {
	for _, verbs := range intentAliases {
		for _, v := range verbs {
			if word == v {
				return true
			}
		}
	}
	return false
}

func singularize(word string) string {
	lower := strings.ToLower(word)
	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return lower[:len(lower)-3] + "y"
	case strings.HasSuffix(lower, "ses") && len(lower) > 3:
		return lower[:len(lower)-2]
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss") && len(lower) > 1:
		return lower[:len(lower)-1]
	default:
		return lower
	}
}

// splitIdentifier breaks a camelCase or snake_case identifier into words.
func splitIdentifier(name string) []string {
	var words []string
	var cur strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if r == '_' || r == '-' {
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
			continue
		}
		if i > 0 && isUpper(r) && !isUpper(runes[i-1]) {
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func dedupeSorted(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
