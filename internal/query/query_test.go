package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/indexer"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/rerank"
	"github.com/justafolk/xtrc/internal/storage"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, storage.Storage, *config.Config) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	orch := New(store, cfg, emb, rerank.NewLexicalReranker(), llm.Disabled{}, nil)
	return orch, store, cfg
}

func indexFixture(t *testing.T, store storage.Storage, cfg *config.Config) (int64, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "user_handler.go", "package main\n\nfunc CreateUser() {\n\t// creates a new user account\n}\n")
	writeFile(t, root, "util.go", "package main\n\nfunc addNumbers(a, b int) int {\n\treturn a + b\n}\n")

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	idx := indexer.New(store, cfg, emb, llm.Disabled{}, nil)
	_, err = idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)

	repo, err := store.GetRepo(context.Background(), root)
	require.NoError(t, err)
	return repo.ID, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
}

func TestRunReturnsRankedResultsWithPathsAndLines(t *testing.T) {
	orch, store, cfg := newTestOrchestrator(t)
	repoID, root := indexFixture(t, store, cfg)

	resp, err := orch.Run(context.Background(), repoID, root, "create a new user", 5)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	require.NotEmpty(t, resp.Results[0].Path)
	require.GreaterOrEqual(t, resp.Results[0].StartLine, 1)
	require.Equal(t, 1, resp.Results[0].Rank)
	require.NotNil(t, resp.Selection)
	require.Equal(t, "heuristic", resp.SelectionSource)
}

func TestRunCachesRepeatedQueries(t *testing.T) {
	orch, store, cfg := newTestOrchestrator(t)
	repoID, root := indexFixture(t, store, cfg)

	first, err := orch.Run(context.Background(), repoID, root, "create a new user", 5)
	require.NoError(t, err)

	second, err := orch.Run(context.Background(), repoID, root, "create a new user", 5)
	require.NoError(t, err)
	require.Equal(t, first.Results, second.Results)
}

func TestRunWithExplicitZeroTopKReturnsEmptyResultsAndNilSelection(t *testing.T) {
	orch, store, cfg := newTestOrchestrator(t)
	repoID, root := indexFixture(t, store, cfg)

	resp, err := orch.Run(context.Background(), repoID, root, "create a new user", 0)
	require.NoError(t, err)
	require.Empty(t, resp.Results)
	require.Nil(t, resp.Selection)
}

func TestRunWithDefaultTopKSentinelUsesConfiguredLimit(t *testing.T) {
	orch, store, cfg := newTestOrchestrator(t)
	repoID, root := indexFixture(t, store, cfg)
	cfg.QueryDefaultLimit = 1

	resp, err := orch.Run(context.Background(), repoID, root, "create a new user", DefaultTopK)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
}

func TestRunWithEmptyIndexReturnsNoResults(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t)
	repo := &storage.Repo{RootPath: "/nowhere", IndexVersion: "1"}
	require.NoError(t, store.CreateRepo(context.Background(), repo))

	resp, err := orch.Run(context.Background(), repo.ID, "/nowhere", "anything", 5)
	require.NoError(t, err)
	require.Empty(t, resp.Results)
}
