package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gwas-risk-engine/internal/domain"
	"github.com/gwas-risk-engine/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server

	source     domain.StudySource
	genotypes  domain.GenotypeStore
	matches    domain.MatchStore
	normalizer *service.Normalizer
	pipeline   *service.Pipeline
	scanner    *service.Scanner
	scans      *scanManager
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	logger *logrus.Logger,
	source domain.StudySource,
	genotypes domain.GenotypeStore,
	matches domain.MatchStore,
	pipeline *service.Pipeline,
	scanner *service.Scanner,
) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20

	server := &Server{
		configManager: configManager,
		log:           logger,
		router:        router,
		source:        source,
		genotypes:     genotypes,
		matches:       matches,
		normalizer:    service.NewNormalizer(),
		pipeline:      pipeline,
		scanner:       scanner,
		scans:         newScanManager(logger),
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.scans.cancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/studies", s.handleSearchStudies)
		v1.POST("/genotype", s.handleUploadGenotype)
		v1.DELETE("/genotype/:session", s.handleClearGenotype)
		v1.GET("/matches", s.handleListMatches)
		v1.POST("/scan", s.handleStartScan)
		v1.GET("/scan/:id", s.handleScanStatus)
		v1.DELETE("/scan/:id", s.handleCancelScan)
		v1.GET("/scan/:id/ws", s.handleScanProgress)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("%d", time.Now().UnixNano())
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
