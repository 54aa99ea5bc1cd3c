package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLoggerFormatsFieldsInKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf).WithFields(Fields{"component": "extractor"})

	logger.Info("decoded", Fields{"samples": 10, "b": true})

	assert.Contains(t, buf.String(), "[INFO] decoded {b=true component=extractor samples=10}")
}

func TestDefaultLoggerLevelIsSharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger(&buf)
	child := root.WithFields(Fields{"component": "renderer"})

	root.SetLevel(WarnLevel)
	child.Info("hidden")
	child.Error(errors.New("boom"), "render failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[ERROR] render failed: boom")
}

func TestWithContextAddsStoredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	ctx := ContextWithFields(context.Background(), Fields{"job_id": "abc"})
	ctx = ContextWithFields(ctx, Fields{"path": "song.wav"})
	logger.WithContext(ctx).Info("analysis started")

	assert.Contains(t, buf.String(), "job_id=abc path=song.wav")
}

func TestSetGlobalLoggerNilInstallsNoOp(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)
	logger.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	child := logger.WithFields(Fields{"component": "analyzer", "msg": "shadowed"})
	child.Debug("hidden")
	child.Error(errors.New("bad header"), "Analysis failed", Fields{"genre": "Rock", "cause": errors.New("eof")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "2024-05-01T12:00:00Z", entry["time"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "Analysis failed", entry["msg"])
	assert.Equal(t, "bad header", entry["error"])
	assert.Equal(t, "analyzer", entry["component"])
	assert.Equal(t, "Rock", entry["genre"])
	assert.Equal(t, "eof", entry["cause"])
}

func TestJSONLoggerLevelIsShared(t *testing.T) {
	var buf bytes.Buffer
	root := NewJSONLogger(&buf)
	child := root.WithFields(Fields{"component": "pool"})

	root.SetLevel(DebugLevel)
	child.Debug("visible")

	assert.Contains(t, buf.String(), `"msg":"visible"`)
}

func TestJSONLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithFields(context.Background(), Fields{"request_id": "abc"})

	NewJSONLogger(&buf).WithContext(ctx).Info("handled")

	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}

func TestDefaultLoggerColorsOnlyWarningsAndAbove(t *testing.T) {
	var buf bytes.Buffer
	logger := newDefaultLogger(&buf, &buf, true)

	logger.Info("plain")
	logger.Warn("careful")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "\033[")
	assert.Contains(t, lines[1], ColorYellow+"[WARN] careful"+ColorReset)
}
