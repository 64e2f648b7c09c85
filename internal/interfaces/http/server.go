// Package http serves the task workflow backend.
// Handlers translate envelope requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/preview"
	"github.com/garyjia/office-orders/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Version:      "dev",
	}
}

// Dependencies are the services and adapters behind the routes.
// Drafting and Idempotency are optional.
type Dependencies struct {
	Tasks       service.TaskService
	Drafting    service.DraftingService
	Export      service.ExportService
	Previewer   *preview.Previewer
	Codec       port.Codec
	Idempotency port.IdempotencyStore
	JWTSecret   string
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	deps       Dependencies
	httpServer *http.Server
	router     *gin.Engine
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config: config,
		deps:   deps,
		router: gin.New(),
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(correlationMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(metricsMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// route constants carry the /api prefix
	api := s.router.Group("", s.authMiddleware(), s.idempotencyMiddleware())
	{
		api.POST(port.RouteResolveStatus, s.ResolveStatus)
		api.GET(port.RouteStatuses, s.ListStatuses)

		api.POST(port.RouteUpsertTask, s.UpsertTask)
		api.GET(port.RouteTaskDetails, s.TaskDetails)
		api.GET(port.RouteTasks, s.ListTasks)

		api.GET(port.RouteComments, s.ListComments)
		api.GET(port.RouteReturnableUsers, s.ListReturnableUsers)

		api.POST(port.RoutePreview, s.Preview)
		api.POST(port.RouteDraftBody, s.DraftBody)
		api.GET(port.RouteExport, s.Export)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
