// Command xtrc is a command-line client for a running xtrcd daemon:
//
//	xtrc index [-rebuild] <repo_path>
//	xtrc query [-top-k N] <repo_path> <query...>
//	xtrc status <repo_path>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/justafolk/xtrc/internal/client"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	host := os.Getenv("XTRC_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("XTRC_PORT")
	if port == "" {
		port = "8420"
	}
	baseURL := fmt.Sprintf("http://%s:%s", host, port)

	var err error
	switch os.Args[1] {
	case "index":
		err = runIndex(baseURL, os.Args[2:])
	case "query":
		err = runQuery(baseURL, os.Args[2:])
	case "status":
		err = runStatus(baseURL, os.Args[2:])
	case "version", "-v", "--version":
		fmt.Println("xtrc dev")
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage:
  xtrc index [-rebuild] [-json] <repo_path>
  xtrc query [-top-k N] [-json] <repo_path> <query...>
  xtrc status [-json] <repo_path>

env:
  XTRC_HOST (default 127.0.0.1)
  XTRC_PORT (default 8420)`)
}

func runIndex(baseURL string, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	rebuild := fs.Bool("rebuild", false, "force a full rebuild instead of an incremental index")
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("index requires a repo_path argument")
	}
	repoPath := fs.Arg(0)

	c := client.New(baseURL, 30*time.Minute)
	resp, err := c.Index(context.Background(), repoPath, *rebuild)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(resp)
	}

	fmt.Printf("repo: %s\n", resp.RepoPath)
	fmt.Printf("files scanned: %d\n", resp.FilesScanned)
	fmt.Printf("files indexed: %d\n", resp.FilesIndexed)
	fmt.Printf("files deleted: %d\n", resp.FilesDeleted)
	fmt.Printf("chunks indexed: %d\n", resp.ChunksIndexed)
	fmt.Printf("duration: %dms\n", resp.DurationMs)
	return nil
}

func runQuery(baseURL string, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	topK := fs.Int("top-k", 0, "number of results to return (daemon default if unset)")
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("query requires a repo_path and a query string")
	}
	repoPath := fs.Arg(0)
	query := strings.Join(fs.Args()[1:], " ")

	c := client.New(baseURL, 2*time.Minute)
	resp, err := c.Query(context.Background(), repoPath, query, *topK)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(resp)
	}

	fmt.Printf("query: %s\n", resp.Query)
	if resp.RewrittenQuery != "" && resp.RewrittenQuery != resp.Query {
		fmt.Printf("rewritten: %s\n", resp.RewrittenQuery)
	}
	fmt.Printf("selection source: %s\n\n", resp.SelectionSource)
	for i, r := range resp.Results {
		fmt.Printf("%d. %s:%d-%d  score=%.3f\n", i+1, r.FilePath, r.StartLine, r.EndLine, r.Score)
		if r.Symbol != "" {
			fmt.Printf("   symbol: %s\n", r.Symbol)
		}
		if r.Description != "" {
			fmt.Printf("   %s\n", r.Description)
		}
	}
	fmt.Printf("\n(%d results in %dms)\n", len(resp.Results), resp.DurationMs)
	return nil
}

func runStatus(baseURL string, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("status requires a repo_path argument")
	}
	repoPath := fs.Arg(0)

	c := client.New(baseURL, 10*time.Second)
	resp, err := c.Status(context.Background(), repoPath)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(resp)
	}

	fmt.Printf("repo: %s\n", resp.RepoPath)
	fmt.Printf("healthy: %v\n", resp.Healthy)
	if resp.Reason != "" {
		fmt.Printf("reason: %s\n", resp.Reason)
	}
	fmt.Printf("indexed files: %d\n", resp.IndexedFiles)
	fmt.Printf("indexed chunks: %d\n", resp.IndexedChunks)
	if resp.Model != "" {
		fmt.Printf("model: %s\n", resp.Model)
	}
	if resp.LastIndexedAt != "" {
		fmt.Printf("last indexed: %s\n", resp.LastIndexedAt)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
