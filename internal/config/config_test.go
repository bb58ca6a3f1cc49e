package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Port, cfg.Port)
}

func TestLoadReadsConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".xtrc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".xtrc", "config.json"), []byte(`{"port": 9000, "use_llm": true, "llm_provider": "ollama"}`), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.UseLLM)
	assert.Equal(t, LLMOllama, cfg.LLMProvider)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadChunkBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkMaxTokens = cfg.ChunkMinTokens
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresLLMProviderWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseLLM = true
	cfg.LLMProvider = ""
	assert.Error(t, cfg.Validate())
}

func TestSaveAndReload(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Port = 9100
	require.NoError(t, Save(root, cfg))

	reloaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 9100, reloaded.Port)
}
