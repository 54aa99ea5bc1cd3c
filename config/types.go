package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Render   RenderConfig   `mapstructure:"render"`
	Server   ServerConfig   `mapstructure:"server"`
	Workers  WorkersConfig  `mapstructure:"workers"`
	Log      LogConfig      `mapstructure:"log"`
}

// AnalysisConfig contains decoding settings
type AnalysisConfig struct {
	MaxDuration float64       `mapstructure:"max_duration"` // seconds read from the start of a file
	Decoder     string        `mapstructure:"decoder"`      // "native" or "ffmpeg"
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	FFprobePath string        `mapstructure:"ffprobe_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RenderConfig contains spectrogram image settings. The image size is fixed
// at render.DefaultWidth x render.DefaultHeight.
type RenderConfig struct {
	TopDB float64 `mapstructure:"top_db"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"` // per client on /api/v1, 0 disables
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// WorkersConfig contains analysis pool settings
type WorkersConfig struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queue_size"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"` // "text" or "json"
	NoColor bool   `mapstructure:"no_color"`
}
