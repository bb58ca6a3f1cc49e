// Package indexer runs the indexing pipeline for one repository: walk,
// parse, chunk, enrich, optionally summarize, embed, and persist.
//
// # Basic Usage
//
//	idx := indexer.New(store, cfg, emb, llmProvider, logger)
//
//	result, err := idx.IndexRepo(ctx, "/path/to/repo", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Indexed %d files in %v\n", result.FilesIndexed, result.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: internal/walker streams every indexable text file under
//     the root (built-in excludes, hidden files, .gitignore rules, binary
//     and size filters), whatever its language.
//  2. Incremental decision: a file whose SHA-256 content hash equals the
//     stored one is skipped, unless forceReindex is set.
//  3. Parse, chunk, enrich: the parser registry yields node ranges, the
//     chunker builds chunks from them, and internal/enrich tags each chunk.
//     When cfg.SummarizeOnIndex is set, chunks of at least
//     cfg.SummaryMinTokens tokens are summarized by the LLM provider
//     (summary cache first); a failed summary is skipped.
//  4. Embed: each chunk is embedded with its own GenerateEmbedding call,
//     after a lookup in the stored embedding cache.
//  5. Persist: one file's chunks and embeddings are written in one
//     transaction of their own, replacing that file's earlier chunks.
//  6. Cleanup: files that the walk no longer finds are deleted together
//     with their chunks and embeddings.
//
// # Concurrent Processing
//
// Files are processed by an errgroup worker pool of cfg.IndexWorkers
// goroutines (runtime.NumCPU() when that is zero or negative).
//
// # Results and Errors
//
// Result counts the files indexed, skipped, and deleted, the chunks written
// in this run (ChunksUpserted), and the chunks removed with deleted files
// (ChunksDeleted). A file that fails to read, embed, or persist is recorded
// in Result.Errors and does not stop the run; IndexRepo itself returns an
// error only for an invalid root, a failed walk, or a failure in the
// cleanup or statistics steps.
package indexer
