package daemon

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/rerank"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	return NewServer(cfg, emb, llm.Disabled{}, rerank.NewLexicalReranker(), nil)
}

func writeFixtureRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "user_handler.go"),
		[]byte("package main\n\nfunc CreateUser() {\n\t// creates a new user account\n}\n"), 0o644))
	return root
}

func TestIndexThenQueryRoundTrip(t *testing.T) {
	s := newTestServer(t)
	root := writeFixtureRepo(t)

	indexBody, _ := json.Marshal(indexRequest{RepoPath: root})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/index", bytes.NewReader(indexBody))
	s.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var idxResp indexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idxResp))
	require.Equal(t, 1, idxResp.FilesIndexed)
	require.Greater(t, idxResp.ChunksIndexed, 0)

	topK := 5
	queryBody, _ := json.Marshal(queryRequest{RepoPath: root, Query: "create a user", TopK: &topK})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/query", bytes.NewReader(queryBody))
	s.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var qResp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qResp))
	require.NotEmpty(t, qResp.Results)
	require.NotEmpty(t, qResp.Results[0].FilePath)
}

func TestQueryBeforeIndexReturnsNotIndexed(t *testing.T) {
	s := newTestServer(t)
	root := writeFixtureRepo(t)

	body, _ := json.Marshal(queryRequest{RepoPath: root, Query: "anything"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/query", bytes.NewReader(body))
	s.ServeHTTP(rec, req)
	require.Equal(t, 404, rec.Code)
}

func TestQueryWithExplicitZeroTopKReturnsEmptyResults(t *testing.T) {
	s := newTestServer(t)
	root := writeFixtureRepo(t)

	indexBody, _ := json.Marshal(indexRequest{RepoPath: root})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/index", bytes.NewReader(indexBody))
	s.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	zero := 0
	queryBody, _ := json.Marshal(queryRequest{RepoPath: root, Query: "create a user", TopK: &zero})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/query", bytes.NewReader(queryBody))
	s.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var qResp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qResp))
	require.Empty(t, qResp.Results)
	require.Nil(t, qResp.Selection)
}

func TestStatusOnUnindexedRepoReportsUnhealthy(t *testing.T) {
	s := newTestServer(t)
	root := writeFixtureRepo(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status?repo_path="+root, nil)
	s.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Healthy)
	require.Equal(t, "not indexed", resp.Reason)
}

func TestIndexRejectsMissingRepoPath(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(indexRequest{RepoPath: ""})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/index", bytes.NewReader(body))
	s.ServeHTTP(rec, req)
	require.Equal(t, 400, rec.Code)
}
