// Package indexer walks a repository, parses and chunks its files, enriches
// and embeds the resulting chunks, and persists the result to storage. It is
// the write side of the daemon: the only component that mutates a repo's
// index.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justafolk/xtrc/internal/apierr"
	"github.com/justafolk/xtrc/internal/chunker"
	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/enrich"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/logging"
	"github.com/justafolk/xtrc/internal/parser"
	"github.com/justafolk/xtrc/internal/storage"
	"github.com/justafolk/xtrc/internal/walker"
	"github.com/justafolk/xtrc/pkg/types"
)

// IndexVersion is bumped whenever a change to parsing, chunking, or
// enrichment would produce different chunks for the same source, so a
// repo indexed under an older version can be detected and rebuilt.
const IndexVersion = "1"

// Indexer coordinates the full indexing pipeline for one repository root:
// walk, parse, chunk, enrich, optionally summarize, embed, and persist.
type Indexer struct {
	store    storage.Storage
	registry *parser.Registry
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	llm      llm.Provider
	cfg      *config.Config
	log      *logging.Logger
}

// New builds an Indexer from its collaborators. llmProvider may be
// llm.Disabled{} when the collaborator is turned off.
func New(store storage.Storage, cfg *config.Config, emb embedder.Embedder, llmProvider llm.Provider, log *logging.Logger) *Indexer {
	if log == nil {
		log = logging.New(logging.Config{})
	}
	return &Indexer{
		store:    store,
		registry: parser.NewRegistry(),
		chunker:  chunker.NewWithBudget(cfg.ChunkMinTokens, cfg.ChunkMaxTokens, cfg.ChunkTargetTokens),
		embedder: emb,
		llm:      llmProvider,
		cfg:      cfg,
		log:      log,
	}
}

// Result summarizes one IndexRepo run.
type Result struct {
	RepoID         int64
	FilesIndexed   int
	FilesSkipped   int
	FilesDeleted   int
	ChunksUpserted int
	ChunksDeleted  int
	Duration       time.Duration
	Errors         []string
}

// IndexRepo indexes rootPath: files whose content hash is unchanged are
// skipped, files no longer present are deleted along with their chunks and
// embeddings, and forceReindex re-parses and re-chunks every file
// regardless of whether its content hash changed.
func (idx *Indexer) IndexRepo(ctx context.Context, rootPath string, forceReindex bool) (*Result, error) {
	start := time.Now()

	absRoot, err := CanonicalizeRoot(rootPath)
	if err != nil {
		return nil, apierr.New(apierr.InvalidRepo, err.Error())
	}

	repo, err := idx.getOrCreateRepo(ctx, absRoot)
	if err != nil {
		return nil, fmt.Errorf("get or create repo: %w", err)
	}

	result := &Result{RepoID: repo.ID}

	seen := newPathSet()
	fileCh, walkErrCh := walker.Walk(ctx, absRoot)

	workers := idx.cfg.IndexWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	var mu sync.Mutex

	for f := range fileCh {
		f := f
		seen.add(f.RelPath)
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			outcome, ferr := idx.indexFile(gctx, repo, f, forceReindex)
			upserted := 0
			if ferr == nil && outcome == outcomeIndexed {
				if file, err := idx.store.GetFile(gctx, repo.ID, f.RelPath); err == nil {
					if rows, err := idx.store.ListChunksByFile(gctx, file.ID); err == nil {
						upserted = len(rows)
					}
				}
			}
			mu.Lock()
			defer mu.Unlock()
			if ferr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.RelPath, ferr))
				idx.log.Warn("index file failed", map[string]interface{}{"path": f.RelPath, "error": ferr.Error()})
				return nil // one bad file never aborts the run
			}
			switch outcome {
			case outcomeIndexed:
				result.FilesIndexed++
				result.ChunksUpserted += upserted
			case outcomeSkipped:
				result.FilesSkipped++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("index workers: %w", err)
	}
	if walkErr := <-walkErrCh; walkErr != nil {
		return nil, apierr.New(apierr.InvalidRepo, walkErr.Error())
	}

	deletedFiles, deletedChunks, err := idx.deleteOrphans(ctx, repo.ID, seen)
	if err != nil {
		return nil, fmt.Errorf("delete orphaned files: %w", err)
	}
	result.FilesDeleted = deletedFiles
	result.ChunksDeleted = deletedChunks

	chunksTotal, err := idx.updateRepoStats(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("update repo stats: %w", err)
	}

	result.Duration = time.Since(start)
	idx.log.Info("index run complete", map[string]interface{}{
		"repo_id":        repo.ID,
		"files_indexed":  result.FilesIndexed,
		"files_skipped":  result.FilesSkipped,
		"files_deleted":  result.FilesDeleted,
		"chunks_deleted": result.ChunksDeleted,
		"chunks_total":   chunksTotal,
		"duration_ms":    result.Duration.Milliseconds(),
	})
	return result, nil
}

// CanonicalizeRoot resolves rootPath to an absolute, symlink-free directory
// path, or returns an error if it does not exist or is not a directory. The
// daemon uses this same resolution to key per-repo state so a symlinked or
// relative path always maps to the same repo.
func CanonicalizeRoot(rootPath string) (string, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return "", fmt.Errorf("resolve repo path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("repo path does not exist: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("repo path does not exist: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repo path is not a directory: %s", resolved)
	}
	return resolved, nil
}

func (idx *Indexer) getOrCreateRepo(ctx context.Context, absRoot string) (*storage.Repo, error) {
	repo, err := idx.store.GetRepo(ctx, absRoot)
	if err == nil {
		return repo, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}
	repo = &storage.Repo{RootPath: absRoot, IndexVersion: IndexVersion}
	if err := idx.store.CreateRepo(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

type fileOutcome int

const (
	outcomeSkipped fileOutcome = iota
	outcomeIndexed
)

// indexFile hashes the file and, if changed (or forceReindex is set),
// parses, chunks, enriches, summarizes, and embeds it, persisting the
// result in a single transaction.
func (idx *Indexer) indexFile(ctx context.Context, repo *storage.Repo, f walker.File, forceReindex bool) (fileOutcome, error) {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("read file: %w", err)
	}
	contentHash := sha256.Sum256(content)

	existing, err := idx.store.GetFile(ctx, repo.ID, f.RelPath)
	if err != nil && err != storage.ErrNotFound {
		return outcomeSkipped, err
	}
	if err == nil && existing.ContentHash == contentHash && !forceReindex {
		return outcomeSkipped, nil
	}
	if err == storage.ErrNotFound {
		existing = nil
	}

	info, err := os.Stat(f.AbsPath)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("stat file: %w", err)
	}

	nodes := idx.registry.Parse(f.RelPath, content)
	chunks := idx.chunker.Build(f.RelPath, string(content), nodes)

	repoIDStr := fmt.Sprintf("%d", repo.ID)
	rows := make([]*storage.ChunkRow, 0, len(chunks))
	embeddings := make([]*storage.EmbeddingRow, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		c.ComputeContentHash()
		c.ComputeChunkID(repoIDStr)

		meta := enrich.Extract(f.RelPath, c.Kind, c.Symbol, c.Content)
		c.IntentTags = meta.IntentTags
		c.Keywords = meta.Keywords
		c.HTTPMethod = meta.RouteMethod
		c.Resource = meta.RouteResource
		if meta.IsRouteHandler {
			c.Kind = types.ChunkRoute
			c.Description = chunker.Describe(*c)
		}

		if idx.cfg.SummarizeOnIndex && c.Tokens >= idx.cfg.SummaryMinTokens {
			if summary, err := idx.summarize(ctx, c); err != nil {
				idx.log.Debug("summarize skipped", map[string]interface{}{"chunk": c.ChunkID, "error": err.Error()})
			} else {
				c.Summary = summary
			}
		}

		row := chunkToRow(c)

		embRow, err := idx.embed(ctx, c)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("embed chunk %s: %w", c.ChunkID, err)
		}

		rows = append(rows, row)
		embeddings = append(embeddings, embRow)
	}

	if err := idx.persistFile(ctx, repo, f, contentHash, info, existing, rows, embeddings); err != nil {
		return outcomeSkipped, err
	}
	return outcomeIndexed, nil
}

// summarize consults the summary cache before calling the LLM collaborator.
func (idx *Indexer) summarize(ctx context.Context, c *types.Chunk) (string, error) {
	hash := summaryHash(c.ContentHash)
	if cached, ok, err := idx.store.GetCachedSummary(ctx, hash); err == nil && ok {
		return cached, nil
	}
	summary, err := idx.llm.Summarize(ctx, c.Content)
	if err != nil {
		return "", err
	}
	if len(summary) > idx.cfg.SummaryMaxChars {
		summary = summary[:idx.cfg.SummaryMaxChars]
	}
	_ = idx.store.SetCachedSummary(ctx, hash, summary)
	return summary, nil
}

// embed consults the embedding cache before calling the embedding provider,
// returning a storage-ready EmbeddingRow either way.
func (idx *Indexer) embed(ctx context.Context, c *types.Chunk) (*storage.EmbeddingRow, error) {
	text := c.EmbeddingText()
	hash := embedder.ComputeHash(idx.embedder.Model(), embedder.RoleDocument, text)

	if cached, err := idx.store.GetCachedEmbedding(ctx, hash); err == nil {
		return &storage.EmbeddingRow{
			Vector:    cached.Vector,
			Dimension: cached.Dimension,
			Provider:  cached.Provider,
			Model:     cached.Model,
			Role:      string(embedder.RoleDocument),
		}, nil
	}

	resp, err := idx.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text, Role: embedder.RoleDocument})
	if err != nil {
		return nil, err
	}
	row := &storage.EmbeddingRow{
		Vector:    storage.SerializeVector(resp.Vector),
		Dimension: resp.Dimension,
		Provider:  resp.Provider,
		Model:     resp.Model,
		Role:      string(embedder.RoleDocument),
	}
	_ = idx.store.SetCachedEmbedding(ctx, hash, row)
	return row, nil
}

func (idx *Indexer) persistFile(ctx context.Context, repo *storage.Repo, f walker.File, contentHash [32]byte, info os.FileInfo, existing *storage.File, rows []*storage.ChunkRow, embeddings []*storage.EmbeddingRow) error {
	tx, err := idx.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	file := &storage.File{
		RepoID:        repo.ID,
		RelPath:       f.RelPath,
		ContentHash:   contentHash,
		ModTime:       info.ModTime(),
		SizeBytes:     info.Size(),
		LastIndexedAt: time.Now(),
	}
	if existing != nil {
		file.ID = existing.ID
	}
	if err := tx.UpsertFile(ctx, file); err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}

	if existing != nil {
		if err := tx.DeleteChunksByFile(ctx, file.ID); err != nil {
			return fmt.Errorf("clear stale chunks: %w", err)
		}
	}

	for i, row := range rows {
		row.FileID = file.ID
		rowID, err := tx.UpsertChunk(ctx, row)
		if err != nil {
			return fmt.Errorf("upsert chunk: %w", err)
		}
		embeddings[i].ChunkID = rowID
		if err := tx.UpsertEmbedding(ctx, embeddings[i]); err != nil {
			return fmt.Errorf("upsert embedding: %w", err)
		}
	}

	return tx.Commit()
}

// deleteOrphans removes files that used to be indexed but are no longer
// present under the repo root, cascading to their chunks and embeddings.
func (idx *Indexer) deleteOrphans(ctx context.Context, repoID int64, seen *pathSet) (filesDeleted, chunksDeleted int, err error) {
	files, err := idx.store.ListFiles(ctx, repoID)
	if err != nil {
		return 0, 0, err
	}
	for _, f := range files {
		if seen.has(f.RelPath) {
			continue
		}
		chunks, err := idx.store.ListChunksByFile(ctx, f.ID)
		if err != nil {
			return filesDeleted, chunksDeleted, err
		}
		if err := idx.store.DeleteFile(ctx, f.ID); err != nil {
			return filesDeleted, chunksDeleted, err
		}
		filesDeleted++
		chunksDeleted += len(chunks)
	}
	return filesDeleted, chunksDeleted, nil
}

func (idx *Indexer) updateRepoStats(ctx context.Context, repo *storage.Repo) (int, error) {
	files, err := idx.store.ListFiles(ctx, repo.ID)
	if err != nil {
		return 0, err
	}
	totalChunks := 0
	for _, f := range files {
		chunks, err := idx.store.ListChunksByFile(ctx, f.ID)
		if err != nil {
			return 0, err
		}
		totalChunks += len(chunks)
	}
	repo.TotalFiles = len(files)
	repo.TotalChunks = totalChunks
	repo.LastIndexedAt = time.Now()
	if err := idx.store.UpdateRepo(ctx, repo); err != nil {
		return 0, err
	}
	return totalChunks, nil
}

func chunkToRow(c *types.Chunk) *storage.ChunkRow {
	return &storage.ChunkRow{
		ID:          c.RowID,
		ChunkID:     c.ChunkID,
		Symbol:      c.Symbol,
		Kind:        string(c.Kind),
		StartLine:   c.StartLine,
		EndLine:     c.EndLine,
		Content:     c.Content,
		ContentHash: c.ContentHash,
		Tokens:      c.Tokens,
		Description: c.Description,
		Summary:     c.Summary,
		IntentTags:  c.IntentTags,
		Keywords:    c.Keywords,
		HTTPMethod:  c.HTTPMethod,
		Resource:    c.Resource,
	}
}

// summaryHash derives the summary cache key from a chunk's content hash,
// independent of the embedding cache's model-scoped key.
func summaryHash(contentHash string) string {
	sum := sha256.Sum256([]byte("summary|" + contentHash))
	return hex.EncodeToString(sum[:])
}

// pathSet is a concurrency-safe set of repo-relative paths, used to track
// which files a walk visited so deleteOrphans can diff against storage.
type pathSet struct {
	mu    sync.Mutex
	paths map[string]bool
}

func newPathSet() *pathSet {
	return &pathSet{paths: make(map[string]bool)}
}

func (s *pathSet) add(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[p] = true
}

func (s *pathSet) has(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths[p]
}
