// Package query implements the read side of the daemon: given a repository
// and a natural-language question, it optionally rewrites the query,
// extracts intent, runs vector and keyword search, blends the two into a
// single hybrid score, optionally reranks locally and via an LLM
// collaborator, and caches the assembled response.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/justafolk/xtrc/internal/apierr"
	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/enrich"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/logging"
	"github.com/justafolk/xtrc/internal/rerank"
	"github.com/justafolk/xtrc/internal/scorer"
	"github.com/justafolk/xtrc/internal/storage"
	"github.com/justafolk/xtrc/pkg/types"
)

// candidateFanout multiplies top_k to decide how many ANN neighbors to pull
// before hybrid scoring narrows the set back down.
const candidateFanout = 4

// minCandidates is the floor on ANN fanout regardless of top_k, so a
// top_k=1 query still sees a reasonable candidate pool.
const minCandidates = 25

// DefaultTopK signals Run to fall back to the configured default result
// limit. Callers that need to distinguish an omitted top_k from an
// explicit top_k=0 (which must return empty results, not the default)
// pass DefaultTopK only when the caller's own top_k was absent.
const DefaultTopK = -1

// Orchestrator runs the query pipeline for one daemon instance, sharing an
// embedder, optional reranker, and optional LLM collaborator across repos.
type Orchestrator struct {
	store    storage.Storage
	embedder embedder.Embedder
	reranker rerank.Reranker
	llm      llm.Provider
	cfg      *config.Config
	log      *logging.Logger

	cacheMu sync.Mutex
	cache   *lru.Cache[string, *Response]
}

// New builds an Orchestrator. reranker may be nil to skip the local
// cross-encoder-style rerank stage entirely.
func New(store storage.Storage, cfg *config.Config, emb embedder.Embedder, reranker rerank.Reranker, llmProvider llm.Provider, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.New(logging.Config{})
	}
	cacheLen := cfg.QueryCacheLen
	if cacheLen <= 0 {
		cacheLen = 500
	}
	cache, _ := lru.New[string, *Response](cacheLen)
	return &Orchestrator{
		store:    store,
		embedder: emb,
		reranker: reranker,
		llm:      llmProvider,
		cfg:      cfg,
		log:      log,
		cache:    cache,
	}
}

// Response is the assembled result of one query run.
type Response struct {
	RepoPath        string
	Query           string
	RewrittenQuery  string
	Results         []types.QueryResult
	Selection       *Selection
	SelectionSource string // "llm" or "heuristic"
	UsedLLM         bool
	LLMModel        string
	LLMLatencyMs    int64
	Duration        time.Duration
}

// Selection is the single best result the query pipeline points to,
// whether chosen by the LLM collaborator or the top hybrid score.
type Selection struct {
	FilePath string
	Line     int
	Reason   string
}

// Run executes the full query pipeline against repoID (already resolved and
// locked by the caller) for the given raw query and result limit.
func (o *Orchestrator) Run(ctx context.Context, repoID int64, repoPath, rawQuery string, topK int) (*Response, error) {
	start := time.Now()
	if topK == DefaultTopK {
		topK = o.cfg.QueryDefaultLimit
	}
	if topK == 0 {
		return &Response{RepoPath: repoPath, Query: rawQuery, Duration: time.Since(start), SelectionSource: "heuristic"}, nil
	}

	cacheKey := o.cacheKey(repoPath, rawQuery, topK)
	if cached, ok := o.cacheGet(cacheKey); ok {
		return cached, nil
	}

	effectiveQuery, rewritten := o.rewrite(ctx, rawQuery)
	signal := enrich.InferQuerySignal(rawQuery)
	queryTerms := signal.StructuralTerms

	queryEmb, err := o.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: effectiveQuery, Role: embedder.RoleQuery})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fanout := topK * candidateFanout
	if fanout < minCandidates {
		fanout = minCandidates
	}

	vectorHits, err := o.store.SearchVector(ctx, repoID, queryEmb.Vector, fanout)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	textHits, err := o.store.SearchText(ctx, repoID, rawQuery, fanout)
	if err != nil {
		o.log.Debug("text search skipped", map[string]interface{}{"error": err.Error()})
		textHits = nil
	}

	candidates, err := o.loadCandidates(ctx, vectorHits, textHits)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		resp := &Response{RepoPath: repoPath, Query: rawQuery, RewrittenQuery: rewritten, Duration: time.Since(start), SelectionSource: "heuristic"}
		return resp, nil
	}

	weights := scorer.Weights{
		RouteBoost:   o.cfg.HeuristicRouteBoost,
		IntentBoost:  o.cfg.HeuristicIntentBoost,
		NoisePenalty: o.cfg.HeuristicNoisePenalty,
	}
	results := make([]types.QueryResult, 0, len(candidates))
	for _, cand := range candidates {
		breakdown := scorer.Score(rawQuery, queryTerms, signal, cand, weights)
		results = append(results, buildResult(cand.Chunk, breakdown))
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Breakdown.VectorScore != b.Breakdown.VectorScore {
			return a.Breakdown.VectorScore > b.Breakdown.VectorScore
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.StartLine < b.StartLine
	})

	truncated := topK * 2
	if truncated > len(results) {
		truncated = len(results)
	}
	results = results[:truncated]
	assignRanks(results)

	if o.reranker != nil && o.cfg.LocalRerankerEnabled && len(results) >= 2 {
		topN := o.cfg.LocalRerankerTopK
		if topN <= 0 || topN > len(results) {
			topN = len(results)
		}
		head := o.reranker.Rerank(rawQuery, results[:topN])
		results = append(head, results[topN:]...)
		assignRanks(results)
	}

	resp := &Response{RepoPath: repoPath, Query: rawQuery, RewrittenQuery: rewritten, SelectionSource: "heuristic"}
	o.selectBest(ctx, rawQuery, results, resp)

	if len(results) > topK {
		results = results[:topK]
	}
	assignRanks(results)
	resp.Results = results
	resp.Duration = time.Since(start)

	o.cacheSet(cacheKey, resp)
	return resp, nil
}

// rewrite runs the LLM query-rewrite stage when enabled, degrading silently
// to the raw query on any failure, per the collaborator's contract.
func (o *Orchestrator) rewrite(ctx context.Context, rawQuery string) (effective, rewritten string) {
	if !o.cfg.UseLLM || !o.cfg.LLMEnableRewrite {
		return rawQuery, ""
	}
	hash := rewriteHash(rawQuery)
	if cached, ok, err := o.store.GetCachedRewrite(ctx, hash); err == nil && ok {
		return cached, cached
	}
	out, err := o.llm.Rewrite(ctx, rawQuery)
	if err != nil || out == "" {
		return rawQuery, ""
	}
	_ = o.store.SetCachedRewrite(ctx, hash, out)
	return out, out
}

// selectBest decides the response's Selection: an LLM-driven rerank+select
// when the best hybrid vector score falls below the configured threshold
// and the collaborator is enabled, otherwise the top hybrid result.
func (o *Orchestrator) selectBest(ctx context.Context, rawQuery string, results []types.QueryResult, resp *Response) {
	if len(results) == 0 {
		return
	}
	bestVectorScore := results[0].Breakdown.VectorScore
	useLLM := o.cfg.UseLLM && bestVectorScore < o.cfg.LLMThreshold

	if useLLM {
		candidates := make(map[string]string, len(results))
		for _, r := range results {
			candidates[r.ChunkID] = fmt.Sprintf("%s:%d-%d %s\n%s", r.Path, r.StartLine, r.EndLine, r.Symbol, r.Snippet)
		}
		llmStart := time.Now()
		ordered, err := o.llm.RerankAndSelect(ctx, rawQuery, candidates)
		latency := time.Since(llmStart)
		if err == nil && len(ordered) > 0 {
			reordered := reorderByChunkID(results, ordered)
			copy(results, reordered)
			assignRanks(results)
			top := results[0]
			resp.Selection = &Selection{FilePath: top.Path, Line: top.StartLine, Reason: "llm rerank"}
			resp.SelectionSource = "llm"
			resp.UsedLLM = true
			resp.LLMModel = o.cfg.LLMModel
			resp.LLMLatencyMs = latency.Milliseconds()
			return
		}
	}

	top := results[0]
	resp.Selection = &Selection{FilePath: top.Path, Line: top.StartLine, Reason: "highest hybrid score"}
	resp.SelectionSource = "heuristic"
}

func reorderByChunkID(results []types.QueryResult, orderedIDs []string) []types.QueryResult {
	byID := make(map[string]types.QueryResult, len(results))
	for _, r := range results {
		byID[r.ChunkID] = r
	}
	out := make([]types.QueryResult, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, id := range orderedIDs {
		if r, ok := byID[id]; ok && !seen[id] {
			out = append(out, r)
			seen[id] = true
		}
	}
	for _, r := range results {
		if !seen[r.ChunkID] {
			out = append(out, r)
			seen[r.ChunkID] = true
		}
	}
	return out
}

func assignRanks(results []types.QueryResult) {
	for i := range results {
		results[i].Rank = i + 1
	}
}

func buildResult(chunk types.Chunk, breakdown types.ScoreBreakdown) types.QueryResult {
	snippet := chunk.Summary
	if snippet == "" {
		snippet = chunk.Description
	}
	return types.QueryResult{
		ChunkID:   chunk.ChunkID,
		Path:      chunk.Path,
		StartLine: chunk.StartLine,
		EndLine:   chunk.EndLine,
		Symbol:    chunk.Symbol,
		Kind:      chunk.Kind,
		Content:   chunk.Content,
		Snippet:   snippet,
		Keywords:  chunk.Keywords,
		Score:     scorer.Final(breakdown),
		Breakdown: breakdown,
	}
}

// loadCandidates merges vector and text hit sets by chunk row id, resolves
// each chunk's row and its owning file's path once, and caches the
// file-id-to-path lookup so repeated chunks from the same file don't repeat
// the round trip. A chunk appearing in both hit sets keeps its vector score;
// the daemon has no separate keyword-score field on Candidate, so text-only
// hits are scored purely on the scorer's keyword/symbol terms.
func (o *Orchestrator) loadCandidates(ctx context.Context, vectorHits []storage.VectorResult, textHits []storage.TextResult) ([]scorer.Candidate, error) {
	scores := make(map[int64]float64, len(vectorHits)+len(textHits))
	for _, h := range vectorHits {
		scores[h.ChunkRowID] = h.SimilarityScore
	}
	for _, h := range textHits {
		if _, ok := scores[h.ChunkRowID]; !ok {
			scores[h.ChunkRowID] = h.BM25Score
		}
	}

	candidates := make([]scorer.Candidate, 0, len(scores))
	fileCache := make(map[int64]string, len(scores))
	for rowID, score := range scores {
		row, err := o.store.GetChunkByRowID(ctx, rowID)
		if err != nil {
			continue // a chunk deleted between search and load is skipped, not fatal
		}
		path, ok := fileCache[row.FileID]
		if !ok {
			file, err := o.store.GetFileByID(ctx, row.FileID)
			if err != nil {
				continue // owning file deleted between search and load
			}
			path = file.RelPath
			fileCache[row.FileID] = path
		}
		candidates = append(candidates, scorer.Candidate{Chunk: rowToChunk(row, path), VectorScore: score})
	}
	return candidates, nil
}

func rowToChunk(row *storage.ChunkRow, path string) types.Chunk {
	return types.Chunk{
		RowID:       row.ID,
		FileID:      row.FileID,
		ChunkID:     row.ChunkID,
		Path:        path,
		StartLine:   row.StartLine,
		EndLine:     row.EndLine,
		Symbol:      row.Symbol,
		Kind:        types.ChunkKind(row.Kind),
		Content:     row.Content,
		ContentHash: row.ContentHash,
		Tokens:      row.Tokens,
		Description: row.Description,
		Summary:     row.Summary,
		IntentTags:  row.IntentTags,
		Keywords:    row.Keywords,
		HTTPMethod:  row.HTTPMethod,
		Resource:    row.Resource,
	}
}

func (o *Orchestrator) cacheKey(repoPath, query string, topK int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", repoPath, query, topK)))
	return hex.EncodeToString(sum[:])
}

func (o *Orchestrator) cacheGet(key string) (*Response, bool) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	resp, ok := o.cache.Get(key)
	if !ok {
		return nil, false
	}
	copied := *resp
	copied.Results = append([]types.QueryResult(nil), resp.Results...)
	return &copied, true
}

func (o *Orchestrator) cacheSet(key string, resp *Response) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	o.cache.Add(key, resp)
}

func rewriteHash(query string) string {
	sum := sha256.Sum256([]byte("rewrite|" + query))
	return hex.EncodeToString(sum[:])
}

// ErrNotIndexed is returned when a query targets a repository with no
// index yet.
var ErrNotIndexed = apierr.New(apierr.NotIndexed, "repository has not been indexed")
