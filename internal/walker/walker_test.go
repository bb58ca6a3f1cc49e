package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, root string) []string {
	t.Helper()
	files, errs := Walk(context.Background(), root)
	var paths []string
	for f := range files {
		paths = append(paths, f.RelPath)
	}
	require.NoError(t, <-errs)
	return paths
}

func TestWalkSkipsDefaultExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")

	paths := collect(t, root)
	assert.ElementsMatch(t, []string{"main.go"}, paths)
}

func TestWalkSkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "text.go", "package main\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0x00, 0x01, 0x02}, 0o644))

	big := make([]byte, MaxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "huge.go"), big, 0o644))

	paths := collect(t, root)
	assert.ElementsMatch(t, []string{"text.go"}, paths)
}

func TestWalkHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\nbuild_output/\n!keep.log\n")
	writeFile(t, root, "app.go", "package main\n")
	writeFile(t, root, "debug.log", "trace\n")
	writeFile(t, root, "keep.log", "trace\n")
	writeFile(t, root, "build_output/artifact.go", "package artifact\n")

	paths := collect(t, root)
	assert.ElementsMatch(t, []string{"app.go", "keep.log"}, paths)
}

func TestWalkNestedGitignoreOverridesParent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.tmp\n")
	writeFile(t, root, "sub/.gitignore", "!keep.tmp\n")
	writeFile(t, root, "sub/keep.tmp", "data\n")
	writeFile(t, root, "sub/drop.tmp", "data\n")

	paths := collect(t, root)
	assert.ElementsMatch(t, []string{"sub/keep.tmp"}, paths)
}

func TestWalkMissingRoot(t *testing.T) {
	_, errs := Walk(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, <-errs)
}
