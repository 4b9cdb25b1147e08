package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aescanero/usersapi/internal/application/users"
	metrics "github.com/aescanero/usersapi/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/usersapi/pkg/ports"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServiceName is reported by the root endpoint
const ServiceName = "Users API"

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	users        *users.Service
	health       ports.HealthChecker
	metrics      *metrics.Collector
	logger       *zap.Logger
	version      string
	startedAt    time.Time
	queryTimeout time.Duration
}

// Config holds HTTP server configuration
type Config struct {
	Port              int
	Version           string
	StartedAt         time.Time
	ReadHeaderTimeout time.Duration
	QueryTimeout      time.Duration
	Users             *users.Service
	Health            ports.HealthChecker
	Metrics           *metrics.Collector
	Logger            *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}

	router := gin.New()

	// Timing and access logging wrap the whole chain so that responses produced
	// by the middleware itself (CORS preflight, panics) are observed too.
	router.Use(requestMetrics(cfg.Metrics))
	router.Use(requestLogger(cfg.Logger))
	router.Use(securityHeaders())
	router.Use(corsMiddleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	router.Use(requestID())
	router.Use(gin.CustomRecoveryWithWriter(io.Discard, recoveryHandler(cfg.Logger)))
	router.Use(errorBoundary(cfg.Logger))

	s := &Server{
		router:       router,
		users:        cfg.Users,
		health:       cfg.Health,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		version:      cfg.Version,
		startedAt:    startedAt,
		queryTimeout: queryTimeout,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)

	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/users", s.handleListUsers)
		api.POST("/users", s.handleCreateUser)
	}

	s.router.NoRoute(s.handleNotFound)
}

// Handler returns the request pipeline with all routes mounted
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))

	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// storageContext bounds storage work for one request. It is detached from the
// client connection so a disconnect does not abort a query halfway.
func (s *Server) storageContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.queryTimeout)
}
