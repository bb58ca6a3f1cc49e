package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting and querying indexed
// repository data: repos, tracked files, chunks, their embeddings, and the
// three content-addressed caches (embedding, summary, rewrite) that let
// re-indexing and repeated queries skip redundant provider calls.
type Storage interface {
	// Repo operations
	CreateRepo(ctx context.Context, repo *Repo) error
	GetRepo(ctx context.Context, rootPath string) (*Repo, error)
	UpdateRepo(ctx context.Context, repo *Repo) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, repoID int64, relPath string) (*File, error)
	GetFileByID(ctx context.Context, fileID int64) (*File, error)
	DeleteFile(ctx context.Context, fileID int64) error
	ListFiles(ctx context.Context, repoID int64) ([]*File, error)

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *ChunkRow) (int64, error)
	GetChunkByChunkID(ctx context.Context, chunkID string) (*ChunkRow, error)
	GetChunkByRowID(ctx context.Context, rowID int64) (*ChunkRow, error)
	ListChunksByFile(ctx context.Context, fileID int64) ([]*ChunkRow, error)
	DeleteChunksByFile(ctx context.Context, fileID int64) error
	DeleteChunksBatch(ctx context.Context, rowIDs []int64) (deletedCount int, err error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *EmbeddingRow) error
	GetEmbedding(ctx context.Context, chunkRowID int64) (*EmbeddingRow, error)
	DeleteEmbedding(ctx context.Context, chunkRowID int64) error

	// Cache operations, all keyed by the caller-computed content hash
	GetCachedEmbedding(ctx context.Context, hash string) (*EmbeddingRow, error)
	SetCachedEmbedding(ctx context.Context, hash string, embedding *EmbeddingRow) error
	GetCachedSummary(ctx context.Context, hash string) (summary string, ok bool, err error)
	SetCachedSummary(ctx context.Context, hash, summary string) error
	GetCachedRewrite(ctx context.Context, hash string) (rewritten string, ok bool, err error)
	SetCachedRewrite(ctx context.Context, hash, rewritten string) error

	// Search operations
	SearchVector(ctx context.Context, repoID int64, vector []float32, limit int) ([]VectorResult, error)
	SearchText(ctx context.Context, repoID int64, query string, limit int) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context, repoID int64) (*RepoStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction.
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// Repo represents one indexed repository root.
type Repo struct {
	ID            int64
	RootPath      string
	IndexVersion  string
	TotalFiles    int
	TotalChunks   int
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File represents a tracked source file within a repo.
type File struct {
	ID            int64
	RepoID        int64
	RelPath       string
	ContentHash   [32]byte
	ModTime       time.Time
	SizeBytes     int64
	ParseError    *string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChunkRow is the persisted form of a types.Chunk.
type ChunkRow struct {
	ID          int64
	FileID      int64
	ChunkID     string
	Symbol      string
	Kind        string
	StartLine   int
	EndLine     int
	Content     string
	ContentHash string
	Tokens      int
	Description string
	Summary     string
	IntentTags  []string
	Keywords    []string
	HTTPMethod  string
	Resource    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EmbeddingRow is a stored vector, either attached to a chunk or held in
// the content-addressed embedding cache.
type EmbeddingRow struct {
	ID        int64
	ChunkID   int64 // 0 when this row belongs only to the cache table
	Vector    []byte
	Dimension int
	Provider  string
	Model     string
	Role      string
	CreatedAt time.Time
}

// SearchFilters narrows vector/text search to a subset of chunks.
type SearchFilters struct {
	Kinds        []string
	PathGlob     string
	MinRelevance float64
}

// VectorResult is one hit from cosine similarity search.
type VectorResult struct {
	ChunkRowID      int64
	SimilarityScore float64
}

// TextResult is one hit from FTS5 keyword search.
type TextResult struct {
	ChunkRowID int64
	BM25Score  float64
}

// RepoStatus summarizes an indexed repo for the daemon's status endpoint.
type RepoStatus struct {
	Repo            *Repo
	FilesCount      int
	ChunksCount     int
	EmbeddingsCount int
	IndexSizeBytes  int64
	LastIndexedAt   time.Time
	Health          HealthStatus
}

// HealthStatus reports whether the index's storage layers are usable.
type HealthStatus struct {
	DatabaseAccessible bool
	VectorIndexBuilt   bool
	FTSIndexBuilt      bool
}
