// Package config loads settings for the CLI and HTTP surfaces. The analysis
// core itself takes plain arguments and never reads configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-genre/logging"
	"github.com/RyanBlaney/sonido-genre/render"
	"github.com/RyanBlaney/sonido-genre/transcode"
)

// EnvPrefix prefixes environment overrides, e.g. SONIDO_SERVER_PORT
const EnvPrefix = "SONIDO"

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxDuration: 10,
			Decoder:     "native",
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			Timeout:     30 * time.Second,
		},
		Render: RenderConfig{
			TopDB: 80,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxUploadMB:     32,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    2,
			RateLimitBurst:  4,
		},
		Workers: WorkersConfig{
			Count:     2,
			QueueSize: 16,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads defaults, then the YAML file at path (if path is non-empty and
// exists), then SONIDO_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
			// Missing file is fine; defaults and env apply
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadEnvFile exports the KEY=VALUE pairs in a dotenv file so Load sees them
// as SONIDO_* overrides. Variables already set in the environment win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so environment overrides are picked up
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("analysis.max_duration", d.Analysis.MaxDuration)
	v.SetDefault("analysis.decoder", d.Analysis.Decoder)
	v.SetDefault("analysis.ffmpeg_path", d.Analysis.FFmpegPath)
	v.SetDefault("analysis.ffprobe_path", d.Analysis.FFprobePath)
	v.SetDefault("analysis.timeout", d.Analysis.Timeout)

	v.SetDefault("render.top_db", d.Render.TopDB)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)

	v.SetDefault("workers.count", d.Workers.Count)
	v.SetDefault("workers.queue_size", d.Workers.QueueSize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.no_color", d.Log.NoColor)
}

// Validate rejects settings that cannot work and auto-corrects sizes that
// are merely out of range.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Analysis.Decoder) {
	case "native", "ffmpeg":
		c.Analysis.Decoder = strings.ToLower(c.Analysis.Decoder)
	case "":
		c.Analysis.Decoder = "native"
	default:
		return fmt.Errorf("invalid decoder %q: must be native or ffmpeg", c.Analysis.Decoder)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
		c.Log.Format = strings.ToLower(c.Log.Format)
	case "":
		c.Log.Format = "text"
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}

	d := Default()

	if c.Analysis.MaxDuration <= 0 {
		c.Analysis.MaxDuration = d.Analysis.MaxDuration
	}
	if c.Analysis.Timeout <= 0 {
		c.Analysis.Timeout = d.Analysis.Timeout
	}
	if c.Render.TopDB <= 0 {
		c.Render.TopDB = d.Render.TopDB
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = d.Server.MaxUploadMB
	}
	if c.Server.RateLimitRPS < 0 {
		c.Server.RateLimitRPS = 0
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		c.Server.RateLimitBurst = 1
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = d.Workers.Count
	}
	if c.Workers.QueueSize <= 0 {
		c.Workers.QueueSize = d.Workers.QueueSize
	}

	return nil
}

// Address returns host:port for the HTTP listener
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// FFmpeg returns the settings for the ffmpeg decoder backend
func (c *Config) FFmpeg() *transcode.FFmpegConfig {
	return &transcode.FFmpegConfig{
		FFmpegPath:  c.Analysis.FFmpegPath,
		FFprobePath: c.Analysis.FFprobePath,
		Timeout:     c.Analysis.Timeout,
	}
}

// RenderOptions returns the spectrogram image options
func (c *Config) RenderOptions() render.Options {
	opts := render.DefaultOptions()
	opts.TopDB = c.Render.TopDB
	return opts
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
