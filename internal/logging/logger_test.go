package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_KeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf})

	l.Info("Analysis completed", "url", "https://x.example", "confidence", 95, "err", errors.New("boom"), "dangling")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Analysis completed", entry["message"])
	assert.Equal(t, "https://x.example", entry["url"])
	assert.Equal(t, float64(95), entry["confidence"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotContains(t, entry, "dangling")
	assert.Contains(t, entry, "time")
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "loud", Output: &buf})

	l.Debug("hidden")
	l.Info("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf}).With("component", "service")
	l.Info("hello")

	assert.Contains(t, buf.String(), `"component":"service"`)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("nothing", "k", "v")
	l.Error("nothing")
}
