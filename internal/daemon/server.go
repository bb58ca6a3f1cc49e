package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/logging"
	"github.com/justafolk/xtrc/internal/rerank"
)

// Server is the daemon's HTTP surface: /index, /query, and /status routed
// through a shared RepoManager that owns one storage handle and rwlock per
// repository.
type Server struct {
	router *http.ServeMux
	server *http.Server
	addr   string
	log    *logging.Logger
	repos  *RepoManager
}

// NewServer builds a Server bound to addr, sharing emb/llmProvider/reranker
// across every repository it opens on demand.
func NewServer(cfg *config.Config, emb embedder.Embedder, llmProvider llm.Provider, reranker rerank.Reranker, log *logging.Logger) *Server {
	if log == nil {
		log = logging.New(logging.Config{})
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s := &Server{
		addr:   addr,
		log:    log,
		repos:  NewRepoManager(cfg, emb, llmProvider, reranker, log),
		router: http.NewServeMux(),
	}
	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/index", s.handleIndex)
	s.router.HandleFunc("/query", s.handleQuery)
	s.router.HandleFunc("/status", s.handleStatus)
}

func (s *Server) applyMiddleware(h http.Handler) http.Handler {
	h = recoveryMiddleware(s.log)(h)
	h = loggingMiddleware(s.log)(h)
	h = requestIDMiddleware()(h)
	h = corsMiddleware()(h)
	return h
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("daemon listening", map[string]interface{}{"addr": s.addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start daemon: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes every open repo's
// storage handle.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.repos.closeAll()
	if err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler, primarily so tests can exercise the
// full middleware chain with httptest without starting a real listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}
