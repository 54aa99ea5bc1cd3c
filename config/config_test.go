package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sonido.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10.0, cfg.Analysis.MaxDuration)
	assert.Equal(t, "native", cfg.Analysis.Decoder)
	assert.Equal(t, 80.0, cfg.Render.TopDB)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
analysis:
  max_duration: 5
  decoder: ffmpeg
  timeout: 45s
server:
  port: 9090
workers:
  count: 4
  queue_size: 8
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Analysis.MaxDuration)
	assert.Equal(t, "ffmpeg", cfg.Analysis.Decoder)
	assert.Equal(t, 45*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Workers.Count)
	assert.Equal(t, 8, cfg.Workers.QueueSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep defaults
	assert.Equal(t, "ffprobe", cfg.Analysis.FFprobePath)
	assert.Equal(t, 32, cfg.Server.MaxUploadMB)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("SONIDO_SERVER_PORT", "7070")
	t.Setenv("SONIDO_ANALYSIS_MAX_DURATION", "2.5")
	t.Setenv("SONIDO_WORKERS_COUNT", "3")
	t.Setenv("SONIDO_LOG_FORMAT", "JSON")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Analysis.MaxDuration)
	assert.Equal(t, 3, cfg.Workers.Count)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SONIDO_RENDER_TOP_DB=60\nSONIDO_SERVER_PORT=6060\n"), 0o644))

	// the process env wins over the file
	t.Setenv("SONIDO_SERVER_PORT", "5050")
	t.Cleanup(func() { os.Unsetenv("SONIDO_RENDER_TOP_DB") })

	require.NoError(t, LoadEnvFile(envPath))
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 60.0, cfg.Render.TopDB)
	assert.Equal(t, 5050, cfg.Server.Port)

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "server: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "unknown decoder",
			mutate:  func(c *Config) { c.Analysis.Decoder = "gstreamer" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
		},
		{
			name: "rate limit corrected",
			mutate: func(c *Config) {
				c.Server.RateLimitRPS = 5
				c.Server.RateLimitBurst = 0
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 1, c.Server.RateLimitBurst)
			},
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
		{
			name:   "empty log format is text",
			mutate: func(c *Config) { c.Log.Format = "" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "text", c.Log.Format)
			},
		},
		{
			name:   "negative rate limit disables",
			mutate: func(c *Config) { c.Server.RateLimitRPS = -1 },
			check: func(t *testing.T, c *Config) {
				assert.Zero(t, c.Server.RateLimitRPS)
			},
		},
		{
			name:   "decoder case folded",
			mutate: func(c *Config) { c.Analysis.Decoder = "FFmpeg" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "ffmpeg", c.Analysis.Decoder)
			},
		},
		{
			name: "sizes auto-corrected",
			mutate: func(c *Config) {
				c.Workers.Count = 0
				c.Workers.QueueSize = -1
				c.Analysis.MaxDuration = -3
				c.Render.TopDB = 0
				c.Server.MaxUploadMB = 0
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 2, c.Workers.Count)
				assert.Equal(t, 16, c.Workers.QueueSize)
				assert.Equal(t, 10.0, c.Analysis.MaxDuration)
				assert.Equal(t, 80.0, c.Render.TopDB)
				assert.Equal(t, int64(32<<20), c.MaxUploadBytes())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestRenderSizeIsFixed(t *testing.T) {
	cfg, err := Load(writeConfig(t, "render:\n  width: 400\n  height: 200\n  top_db: 70\n"))
	require.NoError(t, err)

	opts := cfg.RenderOptions()
	assert.Equal(t, 820, opts.Width)
	assert.Equal(t, 340, opts.Height)
	assert.Equal(t, 70.0, opts.TopDB)
}

func TestDerivedSettings(t *testing.T) {
	cfg := Default()
	cfg.Render.TopDB = 60
	cfg.Analysis.FFmpegPath = "/opt/ffmpeg"

	opts := cfg.RenderOptions()
	assert.Equal(t, 820, opts.Width)
	assert.Equal(t, 340, opts.Height)
	assert.Equal(t, 60.0, opts.TopDB)

	ff := cfg.FFmpeg()
	assert.Equal(t, "/opt/ffmpeg", ff.FFmpegPath)
	assert.Equal(t, 30*time.Second, ff.Timeout)
}
