// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RyanBlaney/sonido-genre/analyzer"
	"github.com/RyanBlaney/sonido-genre/config"
	"github.com/RyanBlaney/sonido-genre/logging"
)

// Server represents the HTTP server
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	pool       *analyzer.Pool
	cfg        *config.Config
	limiters   *rateLimiters
	uploadDir  string
	startedAt  time.Time
	logger     logging.Logger
}

// NewServer creates a server that submits uploads to pool. The caller owns
// the pool and must start and stop it.
func NewServer(cfg *config.Config, pool *analyzer.Pool) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		pool:      pool,
		cfg:       cfg,
		startedAt: time.Now(),
		logger: logging.WithFields(logging.Fields{
			"component": "http_server",
		}),
		httpServer: &http.Server{
			Addr:           cfg.Address(),
			Handler:        engine,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// SetUploadDir changes where uploads are staged; "" means the OS temp dir
func (s *Server) SetUploadDir(dir string) {
	s.uploadDir = dir
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupMiddleware() {
	s.engine.Use(RequestLogger(s.logger))
	s.engine.Use(RequestSizeLimitWithSize(s.cfg.MaxUploadBytes()))
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")
	if s.cfg.Server.RateLimitRPS > 0 {
		s.limiters = newRateLimiters(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst)
		v1.Use(s.limiters.PerClientRateLimit())
	}
	v1.POST("/analyze", s.analyze)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	if s.limiters != nil {
		go s.limiters.cleanup(5*time.Minute, 10*time.Minute)
	}
	s.logger.Info("Server listening", logging.Fields{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiters != nil {
		s.limiters.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
