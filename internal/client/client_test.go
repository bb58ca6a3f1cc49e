package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIndexRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/index", r.URL.Path)
		var req IndexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Rebuild)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(IndexResponse{Status: "ok", RepoPath: req.RepoPath, FilesIndexed: 3, ChunksIndexed: 12})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.Index(context.Background(), ".", true)
	require.NoError(t, err)
	require.Equal(t, 3, resp.FilesIndexed)
	require.Equal(t, 12, resp.ChunksIndexed)
}

func TestQueryPropagatesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "error",
			"error":  map[string]string{"code": "NOT_INDEXED", "message": "repository has not been indexed"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Query(context.Background(), ".", "find handler", 5)
	require.Error(t, err)

	apiErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "NOT_INDEXED", apiErr.Code)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestStatusEncodesRepoPathQueryParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("repo_path"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(StatusResponse{Status: "ok", Healthy: true})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.Status(context.Background(), ".")
	require.NoError(t, err)
	require.True(t, resp.Healthy)
}
