package cmd

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-genre/apperr"
	"github.com/RyanBlaney/sonido-genre/genre"
	"github.com/RyanBlaney/sonido-genre/internal/testaudio"
)

const rate = 16000

// execute runs the root command with fresh flag values; cobra keeps flag
// state on the package-level commands between runs.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	resets := map[*cobra.Command][]string{
		rootCmd:    {"help", "config", "env-file", "log-level", "json-logs"},
		analyzeCmd: {"help", "duration", "out", "json"},
		serveCmd:   {"help", "host", "port"},
		versionCmd: {"help", "short"},
	}
	for c, names := range resets {
		for _, name := range names {
			f := c.Flags().Lookup(name)
			if f == nil {
				f = c.PersistentFlags().Lookup(name)
			}
			if f == nil {
				continue
			}
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		}
	}

	root := NewRootCmd()
	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(outBuf)
	root.SetErr(errBuf)
	root.SetArgs(args)

	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		contains string
	}{
		{name: "no args shows help", args: []string{}, contains: "rule-based music genre classification"},
		{name: "help lists commands", args: []string{"--help"}, contains: "Available Commands:"},
		{name: "invalid flag", args: []string{"--invalid-flag"}, wantErr: true},
		{name: "analyze help", args: []string{"analyze", "--help"}, contains: "--duration"},
		{name: "serve help", args: []string{"serve", "--help"}, contains: "POST /api/v1/analyze"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout, tt.contains)
		})
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"analyze", "serve", "version"} {
		sub, _, err := NewRootCmd().Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Version:      vdev")

	stdout, _, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "vdev\n", stdout)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(800, 0.5, rate, 2*rate), rate)

	stdout, stderr, err := execute(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Genre:    Classical")
	assert.Contains(t, stdout, "centroid=")
	// status logs stay off stdout
	assert.Contains(t, stderr, "Analysis complete")
	assert.NotContains(t, stdout, "Analysis complete")
}

func TestAnalyzeCommandJSONLogs(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(800, 0.5, rate, 2*rate), rate)

	stdout, stderr, err := execute(t, "--json-logs", "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Genre:    Classical")

	var sawComplete bool
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry["msg"] == "Analysis complete" {
			sawComplete = true
			assert.Equal(t, "INFO", entry["level"])
		}
	}
	assert.True(t, sawComplete)
}

func TestAnalyzeCommandJSONAndPNG(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(800, 0.5, rate, 2*rate), rate)
	out := filepath.Join(dir, "spectrogram.png")

	stdout, _, err := execute(t, "analyze", path, "--json", "--out", out, "--duration", "1", "--log-level", "error")
	require.NoError(t, err)

	var doc analyzeOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, genre.Classical, doc.Genre)
	assert.Equal(t, "classical", doc.Rule)
	assert.Equal(t, rate, doc.SampleRate)
	assert.Equal(t, out, doc.Spectrogram)
	assert.NotEmpty(t, doc.ID)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 820, img.Bounds().Dx())
	assert.Equal(t, 340, img.Bounds().Dy())
}

func TestAnalyzeCommandErrors(t *testing.T) {
	dir := t.TempDir()
	tone := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(800, 0.5, rate, rate), rate)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{name: "unsupported extension", args: []string{"analyze", filepath.Join(dir, "notes.txt")}, is: apperr.ErrUnsupportedFormat},
		{name: "missing wav", args: []string{"analyze", filepath.Join(dir, "gone.wav")}, is: apperr.ErrDecode},
		{name: "no file argument", args: []string{"analyze"}},
		{name: "non-positive duration", args: []string{"analyze", tone, "--duration", "0"}},
		{name: "bad log level", args: []string{"analyze", tone, "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestConfigFileIsApplied(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(800, 0.5, rate, 2*rate), rate)
	cfgPath := filepath.Join(dir, "sonido.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: error\nrender:\n  width: 400\n  height: 200\n"), 0o644))
	out := filepath.Join(dir, "spectrogram.png")

	stdout, stderr, err := execute(t, "--config", cfgPath, "analyze", path, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Genre:")
	assert.NotContains(t, stderr, "Analysis complete")

	// the image size is not configurable
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 820, img.Bounds().Dx())
	assert.Equal(t, 340, img.Bounds().Dy())
}

func TestEnvFileIsApplied(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(800, 0.5, rate, 2*rate), rate)
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SONIDO_LOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SONIDO_LOG_FORMAT") })

	_, stderr, err := execute(t, "--env-file", envPath, "analyze", path)
	require.NoError(t, err)

	var sawComplete bool
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry["msg"] == "Analysis complete" {
			sawComplete = true
		}
	}
	assert.True(t, sawComplete)

	_, _, err = execute(t, "--env-file", filepath.Join(dir, "missing.env"), "analyze", path)
	assert.Error(t, err)
}
