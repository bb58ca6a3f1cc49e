package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/justafolk/xtrc/internal/apierr"
	"github.com/justafolk/xtrc/internal/query"
	"github.com/justafolk/xtrc/internal/storage"
	"github.com/justafolk/xtrc/pkg/types"
)

type indexRequest struct {
	RepoPath string `json:"repo_path"`
	Rebuild  bool   `json:"rebuild"`
}

type indexResponse struct {
	Status        string `json:"status"`
	RepoPath      string `json:"repo_path"`
	FilesScanned  int    `json:"files_scanned"`
	FilesIndexed  int    `json:"files_indexed"`
	FilesDeleted  int    `json:"files_deleted"`
	ChunksIndexed int    `json:"chunks_indexed"`
	DurationMs    int64  `json:"duration_ms"`
}

// handleIndex runs (or rebuilds) a repository's index. A second /index call
// against a repo already being indexed fails fast with BUSY rather than
// queuing behind the write lock.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.New(apierr.InvalidRequest, "invalid request body"))
		return
	}

	rs, err := s.repos.resolve(req.RepoPath)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if !rs.mu.TryLock() {
		apierr.Write(w, apierr.New(apierr.Busy, "repository is already being indexed"))
		return
	}
	defer rs.mu.Unlock()

	result, err := rs.idx.IndexRepo(r.Context(), req.RepoPath, req.Rebuild)
	if err != nil {
		apierr.Write(w, asAPIError(err))
		return
	}

	writeJSON(w, http.StatusOK, indexResponse{
		Status:        "ok",
		RepoPath:      rs.root,
		FilesScanned:  result.FilesIndexed + result.FilesSkipped,
		FilesIndexed:  result.FilesIndexed,
		FilesDeleted:  result.FilesDeleted,
		ChunksIndexed: result.ChunksUpserted,
		DurationMs:    result.Duration.Milliseconds(),
	})
}

type queryRequest struct {
	RepoPath string `json:"repo_path"`
	Query    string `json:"query"`
	// TopK is a pointer so an absent top_k (use the configured default) is
	// distinguishable from an explicit top_k=0 (return empty results).
	TopK *int `json:"top_k"`
}

type queryResultDTO struct {
	FilePath        string   `json:"file_path"`
	StartLine       int      `json:"start_line"`
	EndLine         int      `json:"end_line"`
	Symbol          string   `json:"symbol"`
	Description     string   `json:"description"`
	Score           float64  `json:"score"`
	VectorScore     float64  `json:"vector_score"`
	KeywordScore    float64  `json:"keyword_score"`
	SymbolScore     float64  `json:"symbol_score"`
	IntentScore     float64  `json:"intent_score"`
	StructuralScore float64  `json:"structural_score"`
	MatchedIntents  []string `json:"matched_intents"`
	MatchedKeywords []string `json:"matched_keywords"`
	Explanation     string   `json:"explanation"`
}

type selectionDTO struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Reason   string `json:"reason"`
}

type queryResponse struct {
	Status          string           `json:"status"`
	RepoPath        string           `json:"repo_path"`
	Query           string           `json:"query"`
	Results         []queryResultDTO `json:"results"`
	DurationMs      int64            `json:"duration_ms"`
	Selection       *selectionDTO    `json:"selection,omitempty"`
	SelectionSource string           `json:"selection_source"`
	UsedLLM         bool             `json:"used_llm,omitempty"`
	LLMModel        string           `json:"llm_model,omitempty"`
	LLMLatencyMs    int64            `json:"llm_latency_ms,omitempty"`
	RewrittenQuery  string           `json:"rewritten_query,omitempty"`
}

// handleQuery runs the hybrid retrieval pipeline against an already-indexed
// repository. Multiple queries against the same repo run concurrently; a
// query blocks only while that repo is actively being indexed.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.New(apierr.InvalidRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		apierr.Write(w, apierr.New(apierr.InvalidRequest, "query is required"))
		return
	}

	rs, err := s.repos.resolve(req.RepoPath)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	repo, err := rs.store.GetRepo(r.Context(), rs.root)
	if err == storage.ErrNotFound {
		apierr.Write(w, apierr.New(apierr.NotIndexed, "repository has not been indexed"))
		return
	}
	if err != nil {
		apierr.Write(w, apierr.New(apierr.Internal, "internal error"))
		return
	}

	topK := query.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	resp, err := rs.qry.Run(r.Context(), repo.ID, rs.root, req.Query, topK)
	if err != nil {
		apierr.Write(w, asAPIError(err))
		return
	}

	out := queryResponse{
		Status:          "ok",
		RepoPath:        resp.RepoPath,
		Query:           resp.Query,
		Results:         make([]queryResultDTO, 0, len(resp.Results)),
		DurationMs:      resp.Duration.Milliseconds(),
		SelectionSource: resp.SelectionSource,
		UsedLLM:         resp.UsedLLM,
		LLMModel:        resp.LLMModel,
		LLMLatencyMs:    resp.LLMLatencyMs,
		RewrittenQuery:  resp.RewrittenQuery,
	}
	if resp.Selection != nil {
		out.Selection = &selectionDTO{FilePath: resp.Selection.FilePath, Line: resp.Selection.Line, Reason: resp.Selection.Reason}
	}
	for _, res := range resp.Results {
		out.Results = append(out.Results, queryResultDTO{
			FilePath:        res.Path,
			StartLine:       res.StartLine,
			EndLine:         res.EndLine,
			Symbol:          res.Symbol,
			Description:     res.Snippet,
			Score:           res.Score,
			VectorScore:     res.Breakdown.VectorScore,
			KeywordScore:    res.Breakdown.KeywordScore,
			SymbolScore:     res.Breakdown.SymbolScore,
			IntentScore:     res.Breakdown.IntentScore,
			StructuralScore: res.Breakdown.StructuralScore,
			MatchedIntents:  res.Breakdown.MatchedIntents,
			MatchedKeywords: res.Breakdown.MatchedKeywords,
			Explanation:     explain(res.Breakdown),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// explain renders a deterministic, human-readable account of how a result's
// final score was assembled, for callers that want to show their work.
func explain(b types.ScoreBreakdown) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "vector=%.3f keyword=%.3f symbol=%.3f intent=%.3f structural=%.3f, weighted_sum=%.3f",
		b.VectorScore, b.KeywordScore, b.SymbolScore, b.IntentScore, b.StructuralScore, b.WeightedSum)
	if b.Multiplier != 1 {
		fmt.Fprintf(&sb, ", heuristic multiplier=%.2fx", b.Multiplier)
	}
	if len(b.MatchedIntents) > 0 {
		fmt.Fprintf(&sb, ", matched intents: %s", strings.Join(b.MatchedIntents, ", "))
	}
	return sb.String()
}

type statusResponse struct {
	Status        string `json:"status"`
	RepoPath      string `json:"repo_path"`
	IndexedFiles  int    `json:"indexed_files"`
	IndexedChunks int    `json:"indexed_chunks"`
	Model         string `json:"model"`
	Healthy       bool   `json:"healthy"`
	Reason        string `json:"reason,omitempty"`
	LastIndexedAt string `json:"last_indexed_at,omitempty"`
}

// handleStatus reports a repository's index health without ever blocking
// on an in-progress /index call: if the repo's read lock is unavailable it
// reports healthy=false with reason "indexing" instead of waiting.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	repoPath := r.URL.Query().Get("repo_path")
	rs, err := s.repos.resolve(repoPath)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if !rs.mu.TryRLock() {
		writeJSON(w, http.StatusOK, statusResponse{
			Status:   "ok",
			RepoPath: rs.root,
			Healthy:  false,
			Reason:   "indexing",
		})
		return
	}
	defer rs.mu.RUnlock()

	repo, err := rs.store.GetRepo(r.Context(), rs.root)
	if err == storage.ErrNotFound {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok", RepoPath: rs.root, Healthy: false, Reason: "not indexed"})
		return
	}
	if err != nil {
		apierr.Write(w, apierr.New(apierr.Internal, "internal error"))
		return
	}

	st, err := rs.store.GetStatus(r.Context(), repo.ID)
	if err != nil {
		apierr.Write(w, apierr.New(apierr.Internal, "internal error"))
		return
	}

	resp := statusResponse{
		Status:        "ok",
		RepoPath:      rs.root,
		IndexedFiles:  st.FilesCount,
		IndexedChunks: st.ChunksCount,
		Model:         s.repos.embedder.Model(),
		Healthy:       st.Health.DatabaseAccessible,
	}
	if !st.Repo.LastIndexedAt.IsZero() {
		resp.LastIndexedAt = st.Repo.LastIndexedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	writeJSON(w, http.StatusOK, resp)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	apierr.Write(w, apierr.New(apierr.InvalidRequest, "method not allowed"))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// asAPIError passes an already-classified *apierr.Error through, and wraps
// anything else as an unclassified internal error so its detail never
// crosses the HTTP boundary.
func asAPIError(err error) error {
	if apiErr, ok := err.(*apierr.Error); ok {
		return apiErr
	}
	return apierr.New(apierr.Internal, "internal error")
}
