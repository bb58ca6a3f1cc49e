package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	l.Info("should be dropped", nil)
	assert.Empty(t, buf.String())

	l.Error("should appear", map[string]interface{}{"code": "BUSY"})
	assert.Contains(t, buf.String(), "should appear")
}

func TestLoggerJSONShape(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})
	l.Info("indexing complete", map[string]interface{}{"files": 12})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "indexing complete", decoded["message"])
	assert.Equal(t, "info", decoded["level"])
}

func TestLoggerHumanFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Format: FormatHuman, Output: &buf})
	l.Warn("slow query", map[string]interface{}{"duration_ms": 250})

	line := buf.String()
	assert.True(t, strings.Contains(line, "slow query"))
	assert.True(t, strings.Contains(line, "duration_ms=250"))
}
