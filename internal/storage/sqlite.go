package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity.
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements Storage using SQLite, with vector search backed
// by the sqlite-vec extension when the cgo build is available and a
// Go-computed cosine-similarity fallback otherwise.
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with the settings this daemon
// relies on: WAL journaling for concurrent readers during an in-flight
// write, foreign keys enforced, and a single writer connection since
// SQLite serializes writes regardless of pool size.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if necessary) the metadata and vector
// store at dbPath and brings its schema up to date.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is implemented by both *sql.DB and *sql.Tx, letting every CRUD
// method run identically inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

func (t *sqliteTx) querier() querier { return t.tx }
func (s *SQLiteStorage) querier() querier { return s.db }

// Repo operations

func (s *SQLiteStorage) createRepoWithQuerier(ctx context.Context, q querier, repo *Repo) error {
	query := `
		INSERT INTO repos (root_path, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query, repo.RootPath, repo.IndexVersion, now, now)
	if err != nil {
		return fmt.Errorf("failed to create repo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	repo.ID = id
	repo.CreatedAt = now
	repo.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateRepo(ctx context.Context, repo *Repo) error {
	return s.createRepoWithQuerier(ctx, s.querier(), repo)
}

func (s *SQLiteStorage) getRepoWithQuerier(ctx context.Context, q querier, rootPath string) (*Repo, error) {
	query := `
		SELECT id, root_path, total_files, total_chunks, index_version,
		       last_indexed_at, created_at, updated_at
		FROM repos
		WHERE root_path = ?
	`
	var repo Repo
	var lastIndexedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, rootPath).Scan(
		&repo.ID, &repo.RootPath, &repo.TotalFiles, &repo.TotalChunks,
		&repo.IndexVersion, &lastIndexedAt, &repo.CreatedAt, &repo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		repo.LastIndexedAt = lastIndexedAt.Time
	}
	return &repo, nil
}

func (s *SQLiteStorage) GetRepo(ctx context.Context, rootPath string) (*Repo, error) {
	return s.getRepoWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) updateRepoWithQuerier(ctx context.Context, q querier, repo *Repo) error {
	query := `
		UPDATE repos
		SET total_files = ?, total_chunks = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query, repo.TotalFiles, repo.TotalChunks, repo.LastIndexedAt, now, repo.ID)
	if err != nil {
		return fmt.Errorf("failed to update repo: %w", err)
	}
	repo.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateRepo(ctx context.Context, repo *Repo) error {
	return s.updateRepoWithQuerier(ctx, s.querier(), repo)
}

func (s *SQLiteStorage) getRepoByID(ctx context.Context, repoID int64) (*Repo, error) {
	query := `
		SELECT id, root_path, total_files, total_chunks, index_version,
		       last_indexed_at, created_at, updated_at
		FROM repos
		WHERE id = ?
	`
	var repo Repo
	var lastIndexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, repoID).Scan(
		&repo.ID, &repo.RootPath, &repo.TotalFiles, &repo.TotalChunks,
		&repo.IndexVersion, &lastIndexedAt, &repo.CreatedAt, &repo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		repo.LastIndexedAt = lastIndexedAt.Time
	}
	return &repo, nil
}

// File operations

func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *File) error {
	query := `
		INSERT INTO files (repo_id, rel_path, content_hash, mod_time, size_bytes, parse_error, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, rel_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			parse_error = excluded.parse_error,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		file.RepoID, file.RelPath, file.ContentHash[:],
		file.ModTime, file.SizeBytes, file.ParseError, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	file.LastIndexedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	return s.upsertFileWithQuerier(ctx, s.querier(), file)
}

func scanFile(row interface{ Scan(...interface{}) error }) (*File, error) {
	var file File
	var hash []byte
	var parseError sql.NullString
	err := row.Scan(
		&file.ID, &file.RepoID, &file.RelPath, &hash, &file.ModTime,
		&file.SizeBytes, &parseError, &file.LastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(file.ContentHash[:], hash)
	if parseError.Valid {
		file.ParseError = &parseError.String
	}
	return &file, nil
}

const fileColumns = `id, repo_id, rel_path, content_hash, mod_time, size_bytes, parse_error, last_indexed_at, created_at, updated_at`

func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, repoID int64, relPath string) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE repo_id = ? AND rel_path = ?`
	file, err := scanFile(q.QueryRowContext(ctx, query, repoID, relPath))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return file, err
}

func (s *SQLiteStorage) GetFile(ctx context.Context, repoID int64, relPath string) (*File, error) {
	return s.getFileWithQuerier(ctx, s.querier(), repoID, relPath)
}

func (s *SQLiteStorage) getFileByIDWithQuerier(ctx context.Context, q querier, fileID int64) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ?`
	file, err := scanFile(q.QueryRowContext(ctx, query, fileID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return file, err
}

func (s *SQLiteStorage) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return s.getFileByIDWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) deleteFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	return s.deleteFileWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier, repoID int64) ([]*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE repo_id = ? ORDER BY rel_path`
	rows, err := q.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, repoID int64) ([]*File, error) {
	return s.listFilesWithQuerier(ctx, s.querier(), repoID)
}

// Chunk operations

const chunkColumns = `id, file_id, chunk_id, symbol, kind, start_line, end_line, content, content_hash, tokens, description, summary, intent_tags, keywords, http_method, resource, created_at, updated_at`

func scanChunk(row interface{ Scan(...interface{}) error }) (*ChunkRow, error) {
	var c ChunkRow
	var symbol, description, summary, intentTags, keywords, httpMethod, resource sql.NullString
	err := row.Scan(
		&c.ID, &c.FileID, &c.ChunkID, &symbol, &c.Kind, &c.StartLine, &c.EndLine,
		&c.Content, &c.ContentHash, &c.Tokens, &description, &summary,
		&intentTags, &keywords, &httpMethod, &resource, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Symbol = symbol.String
	c.Description = description.String
	c.Summary = summary.String
	c.HTTPMethod = httpMethod.String
	c.Resource = resource.String
	c.IntentTags = splitCSV(intentTags.String)
	c.Keywords = splitCSV(keywords.String)
	return &c, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinCSV(vals []string) string {
	return strings.Join(vals, ",")
}

func (s *SQLiteStorage) upsertChunkWithQuerier(ctx context.Context, q querier, chunk *ChunkRow) (int64, error) {
	query := `
		INSERT INTO chunks (
			file_id, chunk_id, symbol, kind, start_line, end_line, content, content_hash,
			tokens, description, summary, intent_tags, keywords, http_method, resource,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			symbol = excluded.symbol,
			kind = excluded.kind,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			content = excluded.content,
			content_hash = excluded.content_hash,
			tokens = excluded.tokens,
			description = excluded.description,
			summary = excluded.summary,
			intent_tags = excluded.intent_tags,
			keywords = excluded.keywords,
			http_method = excluded.http_method,
			resource = excluded.resource,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	var id int64
	err := q.QueryRowContext(ctx, query,
		chunk.FileID, chunk.ChunkID, chunk.Symbol, chunk.Kind, chunk.StartLine, chunk.EndLine,
		chunk.Content, chunk.ContentHash, chunk.Tokens, chunk.Description, chunk.Summary,
		joinCSV(chunk.IntentTags), joinCSV(chunk.Keywords), chunk.HTTPMethod, chunk.Resource,
		now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert chunk: %w", err)
	}
	chunk.ID = id
	chunk.UpdatedAt = now
	return id, nil
}

func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *ChunkRow) (int64, error) {
	return s.upsertChunkWithQuerier(ctx, s.querier(), chunk)
}

func (s *SQLiteStorage) GetChunkByChunkID(ctx context.Context, chunkID string) (*ChunkRow, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE chunk_id = ?`
	c, err := scanChunk(s.db.QueryRowContext(ctx, query, chunkID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStorage) GetChunkByRowID(ctx context.Context, rowID int64) (*ChunkRow, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id = ?`
	c, err := scanChunk(s.db.QueryRowContext(ctx, query, rowID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStorage) ListChunksByFile(ctx context.Context, fileID int64) ([]*ChunkRow, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE file_id = ? ORDER BY start_line`
	rows, err := s.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*ChunkRow, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) deleteChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return s.deleteChunksByFileWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) deleteChunksBatchWithQuerier(ctx context.Context, q querier, rowIDs []int64) (int, error) {
	if len(rowIDs) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(rowIDs))
	args := make([]interface{}, len(rowIDs))
	for i, id := range rowIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM chunks WHERE id IN (%s)", strings.Join(placeholders, ","))
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (s *SQLiteStorage) DeleteChunksBatch(ctx context.Context, rowIDs []int64) (int, error) {
	return s.deleteChunksBatchWithQuerier(ctx, s.querier(), rowIDs)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *EmbeddingRow) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			role = excluded.role
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, embedding.Role, now).Scan(&embedding.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *EmbeddingRow) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkRowID int64) (*EmbeddingRow, error) {
	query := `SELECT id, chunk_id, vector, dimension, provider, model, role, created_at FROM embeddings WHERE chunk_id = ?`
	var e EmbeddingRow
	err := s.db.QueryRowContext(ctx, query, chunkRowID).Scan(
		&e.ID, &e.ChunkID, &e.Vector, &e.Dimension, &e.Provider, &e.Model, &e.Role, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStorage) deleteEmbeddingWithQuerier(ctx context.Context, q querier, chunkRowID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM embeddings WHERE chunk_id = ?`, chunkRowID)
	return err
}

func (s *SQLiteStorage) DeleteEmbedding(ctx context.Context, chunkRowID int64) error {
	return s.deleteEmbeddingWithQuerier(ctx, s.querier(), chunkRowID)
}

// Cache operations

func (s *SQLiteStorage) GetCachedEmbedding(ctx context.Context, hash string) (*EmbeddingRow, error) {
	query := `SELECT vector, dimension, provider, model, role, created_at FROM embedding_cache WHERE hash = ?`
	var e EmbeddingRow
	err := s.db.QueryRowContext(ctx, query, hash).Scan(&e.Vector, &e.Dimension, &e.Provider, &e.Model, &e.Role, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStorage) SetCachedEmbedding(ctx context.Context, hash string, embedding *EmbeddingRow) error {
	query := `
		INSERT INTO embedding_cache (hash, vector, dimension, provider, model, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			vector = excluded.vector, dimension = excluded.dimension,
			provider = excluded.provider, model = excluded.model, role = excluded.role
	`
	_, err := s.db.ExecContext(ctx, query, hash, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, embedding.Role, time.Now())
	return err
}

func (s *SQLiteStorage) GetCachedSummary(ctx context.Context, hash string) (string, bool, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM summary_cache WHERE hash = ?`, hash).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return summary, true, nil
}

func (s *SQLiteStorage) SetCachedSummary(ctx context.Context, hash, summary string) error {
	query := `
		INSERT INTO summary_cache (hash, summary, created_at) VALUES (?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET summary = excluded.summary
	`
	_, err := s.db.ExecContext(ctx, query, hash, summary, time.Now())
	return err
}

func (s *SQLiteStorage) GetCachedRewrite(ctx context.Context, hash string) (string, bool, error) {
	var rewritten string
	err := s.db.QueryRowContext(ctx, `SELECT rewritten FROM rewrite_cache WHERE hash = ?`, hash).Scan(&rewritten)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rewritten, true, nil
}

func (s *SQLiteStorage) SetCachedRewrite(ctx context.Context, hash, rewritten string) error {
	query := `
		INSERT INTO rewrite_cache (hash, rewritten, created_at) VALUES (?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET rewritten = excluded.rewritten
	`
	_, err := s.db.ExecContext(ctx, query, hash, rewritten, time.Now())
	return err
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, repoID int64, vector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, s.db, repoID, vector, limit)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, repoID int64, query string, limit int) ([]TextResult, error) {
	return searchText(ctx, s.db, repoID, query, limit)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context, repoID int64) (*RepoStatus, error) {
	repo, err := s.getRepoByID(ctx, repoID)
	if err != nil {
		return nil, err
	}

	var filesCount, chunksCount, embeddingsCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE repo_id = ?`, repoID).Scan(&filesCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks c JOIN files f ON c.file_id = f.id WHERE f.repo_id = ?`, repoID).Scan(&chunksCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings e JOIN chunks c ON e.chunk_id = c.id JOIN files f ON c.file_id = f.id WHERE f.repo_id = ?`,
		repoID).Scan(&embeddingsCount); err != nil {
		return nil, err
	}

	accessible := s.db.PingContext(ctx) == nil
	return &RepoStatus{
		Repo:            repo,
		FilesCount:      filesCount,
		ChunksCount:     chunksCount,
		EmbeddingsCount: embeddingsCount,
		LastIndexedAt:   repo.LastIndexedAt,
		Health: HealthStatus{
			DatabaseAccessible: accessible,
			VectorIndexBuilt:   VectorExtensionAvailable,
			FTSIndexBuilt:      true,
		},
	}, nil
}

// Tx delegation: every Storage method on sqliteTx runs against the
// transaction's own querier instead of the shared *sql.DB.

func (t *sqliteTx) CreateRepo(ctx context.Context, repo *Repo) error {
	return t.storage.createRepoWithQuerier(ctx, t.querier(), repo)
}
func (t *sqliteTx) GetRepo(ctx context.Context, rootPath string) (*Repo, error) {
	return t.storage.getRepoWithQuerier(ctx, t.querier(), rootPath)
}
func (t *sqliteTx) UpdateRepo(ctx context.Context, repo *Repo) error {
	return t.storage.updateRepoWithQuerier(ctx, t.querier(), repo)
}
func (t *sqliteTx) UpsertFile(ctx context.Context, file *File) error {
	return t.storage.upsertFileWithQuerier(ctx, t.querier(), file)
}
func (t *sqliteTx) GetFile(ctx context.Context, repoID int64, relPath string) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), repoID, relPath)
}
func (t *sqliteTx) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return t.storage.getFileByIDWithQuerier(ctx, t.querier(), fileID)
}
func (t *sqliteTx) DeleteFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteFileWithQuerier(ctx, t.querier(), fileID)
}
func (t *sqliteTx) ListFiles(ctx context.Context, repoID int64) ([]*File, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier(), repoID)
}
func (t *sqliteTx) UpsertChunk(ctx context.Context, chunk *ChunkRow) (int64, error) {
	return t.storage.upsertChunkWithQuerier(ctx, t.querier(), chunk)
}
func (t *sqliteTx) GetChunkByChunkID(ctx context.Context, chunkID string) (*ChunkRow, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE chunk_id = ?`
	c, err := scanChunk(t.tx.QueryRowContext(ctx, query, chunkID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}
func (t *sqliteTx) GetChunkByRowID(ctx context.Context, rowID int64) (*ChunkRow, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id = ?`
	c, err := scanChunk(t.tx.QueryRowContext(ctx, query, rowID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}
func (t *sqliteTx) ListChunksByFile(ctx context.Context, fileID int64) ([]*ChunkRow, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE file_id = ? ORDER BY start_line`
	rows, err := t.tx.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	chunks := make([]*ChunkRow, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
func (t *sqliteTx) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteChunksByFileWithQuerier(ctx, t.querier(), fileID)
}
func (t *sqliteTx) DeleteChunksBatch(ctx context.Context, rowIDs []int64) (int, error) {
	return t.storage.deleteChunksBatchWithQuerier(ctx, t.querier(), rowIDs)
}
func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *EmbeddingRow) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}
func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkRowID int64) (*EmbeddingRow, error) {
	query := `SELECT id, chunk_id, vector, dimension, provider, model, role, created_at FROM embeddings WHERE chunk_id = ?`
	var e EmbeddingRow
	err := t.tx.QueryRowContext(ctx, query, chunkRowID).Scan(
		&e.ID, &e.ChunkID, &e.Vector, &e.Dimension, &e.Provider, &e.Model, &e.Role, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
func (t *sqliteTx) DeleteEmbedding(ctx context.Context, chunkRowID int64) error {
	return t.storage.deleteEmbeddingWithQuerier(ctx, t.querier(), chunkRowID)
}
func (t *sqliteTx) GetCachedEmbedding(ctx context.Context, hash string) (*EmbeddingRow, error) {
	return t.storage.GetCachedEmbedding(ctx, hash)
}
func (t *sqliteTx) SetCachedEmbedding(ctx context.Context, hash string, embedding *EmbeddingRow) error {
	return t.storage.SetCachedEmbedding(ctx, hash, embedding)
}
func (t *sqliteTx) GetCachedSummary(ctx context.Context, hash string) (string, bool, error) {
	return t.storage.GetCachedSummary(ctx, hash)
}
func (t *sqliteTx) SetCachedSummary(ctx context.Context, hash, summary string) error {
	return t.storage.SetCachedSummary(ctx, hash, summary)
}
func (t *sqliteTx) GetCachedRewrite(ctx context.Context, hash string) (string, bool, error) {
	return t.storage.GetCachedRewrite(ctx, hash)
}
func (t *sqliteTx) SetCachedRewrite(ctx context.Context, hash, rewritten string) error {
	return t.storage.SetCachedRewrite(ctx, hash, rewritten)
}
func (t *sqliteTx) SearchVector(ctx context.Context, repoID int64, vector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, t.tx, repoID, vector, limit)
}
func (t *sqliteTx) SearchText(ctx context.Context, repoID int64, query string, limit int) ([]TextResult, error) {
	return searchText(ctx, t.tx, repoID, query, limit)
}
func (t *sqliteTx) GetStatus(ctx context.Context, repoID int64) (*RepoStatus, error) {
	return nil, fmt.Errorf("status is not available inside a transaction")
}
func (t *sqliteTx) Close() error {
	return fmt.Errorf("cannot close a transaction, call Commit or Rollback")
}
func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions are not supported")
}
