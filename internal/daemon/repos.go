// Package daemon exposes the indexer and query pipeline over HTTP: one
// process, many repositories, each with its own SQLite handle and rwlock so
// indexing one repo never blocks queries against another.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/justafolk/xtrc/internal/apierr"
	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/indexer"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/logging"
	"github.com/justafolk/xtrc/internal/query"
	"github.com/justafolk/xtrc/internal/rerank"
	"github.com/justafolk/xtrc/internal/storage"
)

// repoState is the daemon's per-repository handle: a private SQLite
// database under <root>/.xtrc/index.db, an indexer and query orchestrator
// bound to it, and the rwlock that arbitrates concurrent /index and /query
// calls against that one repo.
type repoState struct {
	root  string
	mu    sync.RWMutex
	store storage.Storage
	idx   *indexer.Indexer
	qry   *query.Orchestrator
}

// RepoManager resolves a repo_path from an incoming request to its
// repoState, opening and caching the repo's storage handle on first use.
// The embedder, LLM collaborator, reranker, and config are shared across
// every repo the daemon serves.
type RepoManager struct {
	cfg      *config.Config
	embedder embedder.Embedder
	llm      llm.Provider
	reranker rerank.Reranker
	log      *logging.Logger

	mu    sync.Mutex
	repos map[string]*repoState
}

// NewRepoManager builds a RepoManager sharing the given collaborators
// across every repository it opens.
func NewRepoManager(cfg *config.Config, emb embedder.Embedder, llmProvider llm.Provider, reranker rerank.Reranker, log *logging.Logger) *RepoManager {
	return &RepoManager{
		cfg:      cfg,
		embedder: emb,
		llm:      llmProvider,
		reranker: reranker,
		log:      log,
		repos:    make(map[string]*repoState),
	}
}

// resolve canonicalizes rootPath and returns its repoState, opening a new
// SQLite handle under <root>/.xtrc/index.db the first time a given repo is
// seen. The returned error is always an *apierr.Error.
func (m *RepoManager) resolve(rootPath string) (*repoState, error) {
	if rootPath == "" {
		return nil, apierr.New(apierr.InvalidRepo, "repo_path is required")
	}
	absRoot, err := indexer.CanonicalizeRoot(rootPath)
	if err != nil {
		return nil, apierr.New(apierr.InvalidRepo, err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rs, ok := m.repos[absRoot]; ok {
		return rs, nil
	}

	dbDir := filepath.Join(absRoot, ".xtrc")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, apierr.New(apierr.InvalidRepo, fmt.Sprintf("create index directory: %v", err))
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(dbDir, "index.db"))
	if err != nil {
		return nil, apierr.New(apierr.Internal, fmt.Sprintf("open index database: %v", err))
	}

	rs := &repoState{
		root:  absRoot,
		store: store,
		idx:   indexer.New(store, m.cfg, m.embedder, m.llm, m.log),
		qry:   query.New(store, m.cfg, m.embedder, m.reranker, m.llm, m.log),
	}
	m.repos[absRoot] = rs
	return rs, nil
}

// closeAll closes every open repo storage handle, used during daemon
// shutdown.
func (m *RepoManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for path, rs := range m.repos {
		if err := rs.store.Close(); err != nil {
			m.log.Warn("close repo storage failed", map[string]interface{}{"repo": path, "error": err.Error()})
		}
	}
}
