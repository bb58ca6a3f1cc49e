package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/storage"
	"github.com/justafolk/xtrc/pkg/types"
)

func newTestIndexer(t *testing.T) (*Indexer, storage.Storage) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	return New(store, cfg, emb, llm.Disabled{}, nil), store
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestIndexRepoIndexesNewFiles(t *testing.T) {
	idx, store := newTestIndexer(t)
	root := writeRepo(t, map[string]string{
		"main.go": "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n",
		"handler.go": "package main\n\nfunc CreateUser() {\n\t// creates a user\n}\n",
	})

	result, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesIndexed)
	require.Zero(t, result.FilesSkipped)
	require.Greater(t, result.ChunksUpserted, 0)

	repo, err := store.GetRepo(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 2, repo.TotalFiles)
}

func TestIndexRepoSkipsUnchangedFiles(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := writeRepo(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	_, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)

	result, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)
	require.Zero(t, result.FilesIndexed)
	require.Equal(t, 1, result.FilesSkipped)
}

func TestIndexRepoForceReindexReparsesUnchangedFiles(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := writeRepo(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	_, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)

	result, err := idx.IndexRepo(context.Background(), root, true)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)
	require.Zero(t, result.FilesSkipped)
}

func TestIndexRepoDeletesOrphanedFiles(t *testing.T) {
	idx, store := newTestIndexer(t)
	root := writeRepo(t, map[string]string{
		"a.go": "package main\n\nfunc A() {}\n",
		"b.go": "package main\n\nfunc B() {}\n",
	})

	_, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))

	result, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesDeleted)
	require.Greater(t, result.ChunksDeleted, 0)

	repo, err := store.GetRepo(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, repo.TotalFiles)
}

func TestIndexRepoReindexesModifiedFile(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := writeRepo(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	_, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {\n\tprintln(\"changed\")\n}\n"), 0o644))

	result, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)
}

func TestIndexRepoRejectsMissingPath(t *testing.T) {
	idx, _ := newTestIndexer(t)
	_, err := idx.IndexRepo(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), false)
	require.Error(t, err)
}

func TestIndexRepoMarksRouteHandlerChunksWithRouteKind(t *testing.T) {
	idx, store := newTestIndexer(t)
	root := writeRepo(t, map[string]string{
		"handler.go": "package main\n\nfunc PostOrder() {\n\t// creates a new order\n}\n",
	})

	_, err := idx.IndexRepo(context.Background(), root, false)
	require.NoError(t, err)

	repo, err := store.GetRepo(context.Background(), root)
	require.NoError(t, err)
	file, err := store.GetFile(context.Background(), repo.ID, "handler.go")
	require.NoError(t, err)
	chunks, err := store.ListChunksByFile(context.Background(), file.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	require.Equal(t, string(types.ChunkRoute), chunks[0].Kind)
	require.Equal(t, "post", chunks[0].HTTPMethod)
	require.Contains(t, chunks[0].Description, "Route handler")
}
