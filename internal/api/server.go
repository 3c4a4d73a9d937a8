// Package api implements the control API (spec.md §6): GET /list,
// POST /shutdown, GET /metrics/prometheus and GET /metrics/sys, served
// over the teacher's gin/cors HTTP stack.
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dataprepper-go/pipeline/internal/config"
	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/manager"
	"github.com/dataprepper-go/pipeline/internal/scheduler"
)

// Server is the control API's HTTP server.
type Server struct {
	router  *gin.Engine
	server  *http.Server
	config  *config.ServerConfig
	handler *Handler
}

// NewServer wires a Server from server configuration, the pipeline
// manager and the stats refresher.
func NewServer(cfg *config.ServerConfig, mgr *manager.Manager, refresher *scheduler.StatsRefresher) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(mgr, refresher, cfg.HasPrometheusRegistry())

	s := &Server{
		router:  router,
		config:  cfg,
		handler: handler,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/list", s.handler.List)
	s.router.POST("/shutdown", s.handler.Shutdown)
	s.router.GET("/metrics/prometheus", s.handler.MetricsPrometheus)
	s.router.GET("/metrics/sys", s.handler.MetricsSys)
}

// Start starts the HTTP (or HTTPS, when cfg.SSL is set) server. Blocks
// until the server stops; call from its own goroutine.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.ServerPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("control API starting", "addr", addr, "ssl", s.config.SSL)

	var err error
	if s.config.SSL {
		// keyStoreFilePath is expected to hold a PEM bundle (cert+key);
		// KeyStorePassword/PrivateKeyPassword apply only to encrypted
		// PKCS#8 keys and are not handled by net/http's TLS loader.
		s.server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		err = s.server.ListenAndServeTLS(s.config.KeyStoreFilePath, s.config.KeyStoreFilePath)
	} else {
		err = s.server.ListenAndServe()
	}

	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("control API server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	logger.Info("control API stopping")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("control API shutdown: %w", err)
	}
	return nil
}

// Router exposes the gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
