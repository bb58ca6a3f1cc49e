// Package embedder generates vector embeddings for code chunks using various providers.
//
// The embedder supports three providers (Jina AI, OpenAI, and an offline
// local stub) and provides batching, caching, and retry of failed API calls.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 10000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "func ParseFile(path string) error { ... }",
//	    Role: embedder.RoleQuery, // RoleDocument when empty
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts,
//	})
//	for i, embedding := range resp.Embeddings {
//	    // embedding belongs to texts[i]
//	}
//
// The Jina and OpenAI providers send a batch as one API request; the local
// provider embeds its texts one by one.
//
// # Provider Selection
//
// New builds the provider named by Config.Provider ("jina", "openai", or
// "local") and returns an ErrUnsupportedModel error for any other name. The
// Jina and OpenAI providers read JINA_API_KEY or OPENAI_API_KEY when
// Config.APIKey is empty.
//
// DetectProvider reports the provider the environment points to:
//
//  1. GOCONTEXT_EMBEDDING_PROVIDER, when set
//  2. else jina, when JINA_API_KEY is set
//  3. else openai, when OPENAI_API_KEY is set
//  4. else local
//
// Vector dimensions: Jina 1024, OpenAI 1536, local 384.
//
// # Caching
//
// New creates an LRU Cache when Config.CacheSize > 0, and providers store
// embeddings in it under ComputeHash(model, role, text):
//
//	cache := embedder.NewCache(10000) // at most 10k embeddings
//	hash := embedder.ComputeHash(model, embedder.RoleDocument, text)
//	if emb, ok := cache.Get(hash); ok {
//	    return emb // cache hit
//	}
//
// # Error Handling
//
// Jina and OpenAI API calls are retried with exponential backoff
// (DefaultRetryConfig: 3 retries, 100ms first delay, doubling up to 5s).
// When the retries are exhausted the error wraps ErrProviderFailed:
//
//	resp, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // the provider API kept failing
//	}
//
// # Local Provider
//
// The local provider is an offline stub, not a model: the first 32 entries
// of its vector are the text's SHA-256 bytes scaled to [0,1] and the rest
// are zero, so equal texts get equal vectors.
package embedder
