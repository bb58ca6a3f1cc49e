// Package storage provides SQLite-based persistence for indexed repository
// data: repo metadata, tracked files, chunks, their vector embeddings, and
// the three content-addressed caches (embedding, summary, rewrite) the
// indexing and query pipelines consult before calling out to an embedding
// or LLM provider.
//
// # Database Schema
//
// Tables:
//   - repos: one row per indexed repository root
//   - files: tracked source files and their content hashes
//   - chunks: semantic code chunks with intent/keyword/route metadata
//   - chunks_fts: FTS5 keyword index over chunk content
//   - embeddings: one live vector per chunk
//   - embedding_cache / summary_cache / rewrite_cache: content-hash-keyed
//     caches shared across repos and re-indexing runs
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(filepath.Join(repoRoot, ".xtrc", "index.db"))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// # Transactions
//
// UpsertFile, UpsertChunk, and UpsertEmbedding are called together for
// each file during indexing; wrap them in a transaction via BeginTx so a
// crash mid-file cannot leave orphaned chunks without embeddings.
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//	// ... upserts against tx ...
//	return tx.Commit()
//
// # Vector search build modes
//
// searchVector dispatches on VectorExtensionAvailable, set by whichever of
// build_cgo.go or build_purego.go was compiled: the cgo build links
// mattn/go-sqlite3 with the sqlite-vec extension for SQL-side cosine
// distance, and the purego build links modernc.org/sqlite and scores
// candidates in Go instead.
package storage
