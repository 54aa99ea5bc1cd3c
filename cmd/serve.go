package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-genre/analyzer"
	"github.com/RyanBlaney/sonido-genre/logging"
	"github.com/RyanBlaney/sonido-genre/server"
	"github.com/RyanBlaney/sonido-genre/transcode"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API with the configured settings.

Endpoints:
  POST /api/v1/analyze   multipart upload (field "file", optional "duration")
  GET  /health

Example:
  sonido-genre serve
  sonido-genre serve --port 9090
  sonido-genre serve --host 127.0.0.1 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	if serverHost != "" {
		appConfig.Server.Host = serverHost
	}
	if serverPort != 0 {
		appConfig.Server.Port = serverPort
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	logger := logging.WithFields(logging.Fields{"component": "serve"})

	decoder, err := transcode.NewDecoder(appConfig.Analysis.Decoder, appConfig.FFmpeg())
	if err != nil {
		return err
	}

	pool := analyzer.NewPool(
		analyzer.New(decoder, appConfig.RenderOptions()),
		appConfig.Workers.Count,
		appConfig.Workers.QueueSize,
	)
	pool.Start()
	defer pool.Stop()

	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(appConfig, pool)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	logger.Info("Server is ready to handle requests", logging.Fields{
		"address": appConfig.Address(),
		"workers": appConfig.Workers.Count,
		"decoder": appConfig.Analysis.Decoder,
	})

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case runErr = <-serverErr:
		logger.Error(runErr, "Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server forced to shutdown")
		return err
	}

	logger.Info("Server gracefully stopped")
	return runErr
}
