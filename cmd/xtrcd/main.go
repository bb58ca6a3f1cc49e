// Command xtrcd runs the code-navigation daemon: an HTTP server exposing
// /index, /query, and /status over one or more locally indexed
// repositories.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justafolk/xtrc/internal/config"
	"github.com/justafolk/xtrc/internal/daemon"
	"github.com/justafolk/xtrc/internal/embedder"
	"github.com/justafolk/xtrc/internal/llm"
	"github.com/justafolk/xtrc/internal/logging"
	"github.com/justafolk/xtrc/internal/rerank"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configDir := flag.String("config-dir", ".", "directory whose .xtrc/config.json holds daemon settings")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("xtrcd %s (built %s)\n", version, buildTime)
		return
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{
		Level:  logging.Level(cfg.Logging.Level),
		Format: logging.Format(cfg.Logging.Format),
		Output: os.Stderr,
	})

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		APIKey:    cfg.EmbeddingAPIKey,
		CacheSize: cfg.EmbeddingCacheLen,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build embedder: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = emb.Close() }()

	llmProvider := llm.New(cfg)
	var reranker rerank.Reranker
	if cfg.LocalRerankerEnabled {
		reranker = rerank.NewLexicalReranker()
	}

	server := daemon.NewServer(cfg, emb, llmProvider, reranker, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		if err != nil {
			log.Error("daemon exited", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
