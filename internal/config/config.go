// Package config loads and validates the daemon's runtime configuration:
// listen address, embedding provider, LLM collaborator settings, chunk
// sizing, and heuristic weights. It follows the same viper-backed
// load/default/validate shape used across the retrieval-daemon corpus.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// LLMProvider selects which large-language-model backend, if any, the query
// engine calls for rewrite/summarize/rerank collaboration.
type LLMProvider string

const (
	LLMDisabled LLMProvider = "disabled"
	LLMGemini   LLMProvider = "gemini"
	LLMOpenAI   LLMProvider = "openai"
	LLMOllama   LLMProvider = "ollama"
)

// Config is the full set of daemon options, loaded from
// <repo>/.xtrc/config.json with defaults filled in for anything absent.
type Config struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`

	EmbeddingProvider string `mapstructure:"embedding_provider" json:"embedding_provider"`
	EmbeddingModel    string `mapstructure:"embedding_model" json:"embedding_model"`
	EmbeddingAPIKey   string `mapstructure:"embedding_api_key" json:"embedding_api_key"`
	EmbeddingCacheLen int    `mapstructure:"embedding_cache_len" json:"embedding_cache_len"`

	UseLLM           bool        `mapstructure:"use_llm" json:"use_llm"`
	LLMProvider      LLMProvider `mapstructure:"llm_provider" json:"llm_provider"`
	LLMModel         string      `mapstructure:"llm_model" json:"llm_model"`
	LLMAPIKey        string      `mapstructure:"llm_api_key" json:"llm_api_key"`
	LLMBaseURL       string      `mapstructure:"llm_base_url" json:"llm_base_url"`
	LLMTimeoutMs     int         `mapstructure:"llm_timeout_ms" json:"llm_timeout_ms"`
	LLMThreshold     float64     `mapstructure:"llm_threshold" json:"llm_threshold"`
	LLMEnableRewrite bool        `mapstructure:"llm_enable_rewrite" json:"llm_enable_rewrite"`

	SummarizeOnIndex  bool `mapstructure:"summarize_on_index" json:"summarize_on_index"`
	SummaryMaxChars   int  `mapstructure:"summary_max_chars" json:"summary_max_chars"`
	SummaryMinTokens  int  `mapstructure:"summary_min_tokens" json:"summary_min_tokens"`

	LocalRerankerEnabled bool `mapstructure:"local_reranker_enabled" json:"local_reranker_enabled"`
	LocalRerankerTopK    int  `mapstructure:"local_reranker_top_k" json:"local_reranker_top_k"`

	HeuristicRouteBoost   float64 `mapstructure:"heuristic_route_boost" json:"heuristic_route_boost"`
	HeuristicIntentBoost  float64 `mapstructure:"heuristic_intent_boost" json:"heuristic_intent_boost"`
	HeuristicNoisePenalty float64 `mapstructure:"heuristic_noise_penalty" json:"heuristic_noise_penalty"`

	ChunkMinTokens    int `mapstructure:"chunk_min_tokens" json:"chunk_min_tokens"`
	ChunkMaxTokens    int `mapstructure:"chunk_max_tokens" json:"chunk_max_tokens"`
	ChunkTargetTokens int `mapstructure:"chunk_target_tokens" json:"chunk_target_tokens"`

	IndexWorkers  int `mapstructure:"index_workers" json:"index_workers"`
	IndexBatchLen int `mapstructure:"index_batch_len" json:"index_batch_len"`

	QueryDefaultLimit int `mapstructure:"query_default_limit" json:"query_default_limit"`
	QueryCacheLen     int `mapstructure:"query_cache_len" json:"query_cache_len"`

	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
}

// LoggingConfig configures the daemon's structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// DefaultConfig returns a fully populated Config with the daemon's
// out-of-the-box defaults: local embeddings, no LLM collaborator, and the
// 200/500/800 chunk token budget.
func DefaultConfig() *Config {
	return &Config{
		Host: "127.0.0.1",
		Port: 8420,

		EmbeddingProvider: "local",
		EmbeddingModel:    "local-embeddings",
		EmbeddingCacheLen: 10000,

		UseLLM:           false,
		LLMProvider:      LLMDisabled,
		LLMTimeoutMs:     2000,
		LLMThreshold:     0.85,
		LLMEnableRewrite: false,

		SummarizeOnIndex: false,
		SummaryMaxChars:  400,
		SummaryMinTokens: 300,

		LocalRerankerEnabled: false,
		LocalRerankerTopK:    10,

		HeuristicRouteBoost:   1.3,
		HeuristicIntentBoost:  1.2,
		HeuristicNoisePenalty: 0.7,

		ChunkMinTokens:    200,
		ChunkMaxTokens:    800,
		ChunkTargetTokens: 500,

		IndexWorkers:  0, // 0 means runtime.NumCPU()
		IndexBatchLen: 20,

		QueryDefaultLimit: 10,
		QueryCacheLen:     500,

		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads configuration from <repoRoot>/.xtrc/config.json, falling back
// to DefaultConfig for anything the file does not set or when no config file
// is present. An XTRC_-prefixed environment variable (XTRC_PORT,
// XTRC_USE_LLM, ...) overrides the matching top-level key in either case.
func Load(repoRoot string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".xtrc"))
	v.SetEnvPrefix("XTRC")
	v.AutomaticEnv()
	for k, val := range toMap(cfg) {
		v.SetDefault(k, val) // registers every key so env overrides apply
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to <repoRoot>/.xtrc/config.json.
func Save(repoRoot string, cfg *Config) error {
	v := viper.New()
	v.SetConfigType("json")
	for k, val := range toMap(cfg) {
		v.Set(k, val)
	}
	dir := filepath.Join(repoRoot, ".xtrc")
	if err := ensureDir(dir); err != nil {
		return err
	}
	return v.WriteConfigAs(filepath.Join(dir, "config.json"))
}

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the invariants the daemon relies on: a usable port,
// non-negative chunk thresholds in the right order, and a recognized LLM
// provider whenever UseLLM is set.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "port", Message: "must be between 1 and 65535"}
	}
	if c.ChunkMinTokens <= 0 {
		return &ValidationError{Field: "chunk_min_tokens", Message: "must be positive"}
	}
	if c.ChunkMaxTokens <= c.ChunkMinTokens {
		return &ValidationError{Field: "chunk_max_tokens", Message: "must exceed chunk_min_tokens"}
	}
	if c.ChunkTargetTokens <= 0 || c.ChunkTargetTokens > c.ChunkMaxTokens {
		return &ValidationError{Field: "chunk_target_tokens", Message: "must be between 1 and chunk_max_tokens"}
	}
	if c.UseLLM {
		switch c.LLMProvider {
		case LLMGemini, LLMOpenAI, LLMOllama:
		default:
			return &ValidationError{Field: "llm_provider", Message: "must be gemini, openai, or ollama when use_llm is true"}
		}
	}
	return nil
}
