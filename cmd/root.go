package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-genre/config"
	"github.com/RyanBlaney/sonido-genre/logging"
)

var (
	cfgFile   string
	logLevel  string
	jsonLogs  bool
	envFile   string
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonido-genre",
	Short: "Audio genre classifier and spectrogram renderer",
	Long: `sonido-genre - rule-based music genre classification

Decodes the first seconds of an audio file, summarizes its spectrum with four
statistics (centroid, rolloff, bandwidth, contrast), maps them to one of six
genres and renders a log-frequency spectrogram.

Supported formats: .wav .mp3 .flac .ogg`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd returns the root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with SONIDO_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "enable JSON formatted logs")
}

// loadConfig reads configuration and installs the global logger before any
// subcommand runs. Logs go to stderr so stdout carries only results.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}

	if jsonLogs {
		cfg.Log.Format = "json"
	}

	logger := newLogger(cmd, cfg)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	appConfig = cfg
	return nil
}

// newLogger picks the log writer. One-shot commands keep stdout for results,
// so only serve logs through the stdout/stderr pair.
func newLogger(cmd *cobra.Command, cfg *config.Config) logging.Logger {
	switch {
	case cfg.Log.Format == "json":
		return logging.NewJSONLogger(cmd.ErrOrStderr())
	case cmd.Name() != "serve":
		return logging.NewWriterLogger(cmd.ErrOrStderr())
	case cfg.Log.NoColor:
		return logging.NewDefaultLoggerNoColor()
	default:
		return logging.NewDefaultLogger()
	}
}
